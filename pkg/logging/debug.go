package logging

// DebugEnable is set by the linker (-X) to produce a Debuggable build.
var DebugEnable string

// Debuggable builds log the complete output of every host command they run,
// which can be very large for package upgrades.
var Debuggable = DebugEnable != ""
