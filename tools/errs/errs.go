package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

func New(msg string, kv ...any) error {
	return errors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// WrapMsg attaches a message plus key/value context to err.
// kv is consumed pairwise; a trailing odd value is kept as-is.
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprintf(" %v=%v", kv[i], kv[i+1]))
		} else {
			sb.WriteString(fmt.Sprintf(" %v", kv[i]))
		}
	}
	return sb.String()
}
