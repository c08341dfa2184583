package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
)

// writeJSON prints v as indented JSON, or the results of query applied to it.
func writeJSON(w io.Writer, v any, query string) error {
	if query == "" {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("cannot encode output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	// gojq works on plain maps and slices, so round-trip through JSON
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		res, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := res.(error); ok {
			return err
		}
		if s, ok := res.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("cannot encode output: %w", err)
		}
		fmt.Fprintln(w, string(out))
	}
	return nil
}
