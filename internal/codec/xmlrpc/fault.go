package xmlrpc

import (
	"fmt"
	"strings"
)

// Fault is a remote fault response decoded from a <fault> element.
type Fault struct {
	Code    int64
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", f.Code, f.Message)
}

// Contains reports whether the fault message contains substr.
func (f *Fault) Contains(substr string) bool {
	return strings.Contains(f.Message, substr)
}
