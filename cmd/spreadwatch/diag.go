package main

import (
	"fmt"
	"io"
)

// diag writes warning lines to an io.Writer, the teacher's own style
// of bare fmt.Fprintf to a stream generalized just enough to be
// redirectable in tests.
type diag struct {
	w io.Writer
}

func (d diag) OnWarn(msg string) {
	fmt.Fprintf(d.w, "[WARN] %s\n", msg)
}
