//go:build !unix

package loader

func advise([]byte) {}
