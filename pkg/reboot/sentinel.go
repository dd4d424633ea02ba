package reboot

import (
	"bufio"
	"os"
	"strings"
)

// Required reports whether the reboot-required sentinel exists at path. When
// it does, the packages listed in the companion path+".pkgs" file are
// returned as well, in order and without duplicates. Only existence of the
// sentinel matters; its content is ignored.
func Required(path string) (bool, []string) {
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	return true, packages(path + ".pkgs")
}

func packages(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var pkgs []string
	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		pkg := strings.TrimSpace(scanner.Text())
		if pkg == "" || seen[pkg] {
			continue
		}
		seen[pkg] = true
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}
