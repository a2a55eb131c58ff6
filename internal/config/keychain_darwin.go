//go:build darwin

package config

import "os/exec"

// keychainExec prints the password of the generic keychain item for
// service/account; the item is created by `labeler config set`.
func keychainExec(service, account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
}

// keychainSet creates or updates (-U) the generic keychain item.
func keychainSet(service, account, value string) error {
	return exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", service,
		"-a", account,
		"-w", value,
	).Run()
}
