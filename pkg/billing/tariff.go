package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

// tariffStepLimit caps the work one tariff script run may do.
const tariffStepLimit = 1_000_000

// tariff is a Starlark script that decides the tax lines of a bill.
//
// The script sees amount, services and patient_id as globals plus the math
// module, and must assign taxes a list of {"name": str, "rate": number}.
type tariff struct {
	name    string
	src     string
	timeout time.Duration
}

// run executes the script for req and returns the tax lines it assigned,
// unchecked, as plain Go values.
func (t *tariff) run(ctx context.Context, req Request) ([]map[string]interface{}, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	thread := &starlark.Thread{
		Name:  "tariff:" + t.name,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(tariffStepLimit)

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(fmt.Sprintf("tariff script stopped after %v: %v", t.timeout, ctx.Err()))
	})
	defer stop()

	globals, err := starlark.ExecFile(thread, t.name, t.src, starlark.StringDict{
		"amount":     starlark.Float(req.Amount),
		"services":   starlark.String(req.Services),
		"patient_id": starlark.MakeInt64(req.PatientID),
		"math":       starlarkmath.Module,
	})
	if err != nil {
		return nil, err
	}

	taxes, ok := globals["taxes"]
	if !ok {
		return nil, errors.New("script does not define taxes")
	}

	var items []starlark.Value
	switch seq := taxes.(type) {
	case *starlark.List:
		for i := 0; i < seq.Len(); i++ {
			items = append(items, seq.Index(i))
		}
	case starlark.Tuple:
		items = seq
	default:
		return nil, fmt.Errorf("taxes must be a list, got %s", taxes.Type())
	}

	lines := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		dict, ok := item.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("taxes[%d] must be a dict, got %s", i, item.Type())
		}

		line := make(map[string]interface{}, 2)
		for _, key := range []string{"name", "rate"} {
			v, found, err := dict.Get(starlark.String(key))
			if err != nil {
				return nil, err
			}
			if found {
				line[key] = plainValue(v)
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// plainValue converts the scalar types a tax line may hold. Anything else is
// passed on as its Starlark text so schema validation reports it.
func plainValue(v starlark.Value) interface{} {
	switch x := v.(type) {
	case starlark.String:
		return string(x)
	case starlark.Float:
		return float64(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
	case starlark.Bool:
		return bool(x)
	}
	return v.String()
}
