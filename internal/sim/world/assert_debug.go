//go:build gagdebug

package world

import "fmt"

const debugAssertions = true

func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("world invariant: "+format, args...))
	}
}
