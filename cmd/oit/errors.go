package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/attach"
	"github.com/officetracker/oit/internal/types"
)

// reportError prints a failed command's error. With --json the error goes
// out as {"error": ..., "code": ...} so scripts can branch on the code.
func reportError(w io.Writer, err error) {
	if jsonOutput {
		errObj := map[string]string{"error": err.Error()}
		if code := errorCode(err); code != "" {
			errObj["code"] = code
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(errObj)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

func errorCode(err error) string {
	var validation *types.ValidationError
	var violation *attach.Violation
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, api.ErrForbidden):
		return "forbidden"
	case errors.Is(err, api.ErrNotFound):
		return "not_found"
	case errors.Is(err, api.ErrConflict):
		return "conflict"
	case errors.As(err, &validation):
		return "invalid_input"
	case errors.As(err, &violation):
		return "attachment"
	}
	return ""
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "sign in with 'oit auth login' and set session.cookie"
	case errors.Is(err, api.ErrForbidden):
		return "your account is not allowed to do this"
	case errors.Is(err, api.ErrNotFound):
		return "check the id with 'oit issues list'"
	case errors.Is(err, api.ErrConflict):
		return "someone changed this first; run the command again to see the latest state"
	}
	return ""
}

// WarnError writes a warning message to stderr and returns.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
