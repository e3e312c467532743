//go:build !windows

package main

func defaultRoot() string {
	return "/"
}
