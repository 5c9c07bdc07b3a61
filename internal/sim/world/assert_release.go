//go:build !gagdebug

package world

const debugAssertions = false

func invariant(bool, string, ...any) {}
