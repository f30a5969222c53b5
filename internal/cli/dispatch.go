package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/validate"
)

// dispatch runs one operation against a freshly wired client and prints
// its result. args is either a map or raw JSON.
func dispatch(cmd *cobra.Command, opts *RootOptions, op string, args any) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := openEnv(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()

	f.VerboseLog("dispatching %s to %s", op, e.cfg.APIURL)

	var result any
	switch a := args.(type) {
	case json.RawMessage:
		result, err = e.app.DispatchJSON(ctx, op, a)
	case map[string]any:
		result, err = e.app.Dispatch(ctx, op, a)
	default:
		result, err = e.app.Dispatch(ctx, op, nil)
	}
	if err != nil {
		return reportFailure(f, e.app, op, err)
	}
	return f.Success(result)
}

// reportFailure prints err in the configured format and converts it to the
// matching exit code.
func reportFailure(f *OutputFormatter, a *app.App, op string, err error) error {
	var (
		fieldErrs validate.FieldErrors
		argsErr   *app.ArgsError
		opErr     *engine.OpError
	)
	switch {
	case errors.As(err, &fieldErrs):
		_ = f.Error(CodeValidation, fieldErrs.Error(), []validate.FieldError(fieldErrs))
		return WrapExitError(ExitFailure, op+" rejected", err)
	case errors.As(err, &argsErr), errors.Is(err, app.ErrUnknownOp):
		_ = f.Error(CodeArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid invocation", err)
	case errors.As(err, &opErr):
		code := CodeRequest
		var details any
		if route := a.Session.State().RedirectTo; route != "" {
			code = CodeUnauthenticated
			details = map[string]string{"redirectTo": route}
		}
		_ = f.Error(code, opErr.Message, details)
		return WrapExitError(ExitFailure, op+" failed", err)
	default:
		_ = f.Error(CodeRequest, err.Error(), nil)
		return WrapExitError(ExitFailure, op+" failed", err)
	}
}
