// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by param groups that register their own
// flags, such as a connection whose default comes from the
// environment. BindFlags defers to AddFlags for any struct field whose
// pointer implements it.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams returns a flag set bound to params, a pointer to a
// tagged struct. A malformed params struct is a programming error and
// panics.
//
//	var params historyParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("history", &params) },
//	    Run:   func(ctx context.Context, args []string, logger *slog.Logger) error { ... },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli: flags for %q: %v", name, err))
	}
	return flagSet
}

// BindFlags registers one flag per tagged field of params.
//
// Tags:
//
//	flag:"name" or flag:"name,n"   long name and optional shorthand
//	desc:"text"                    help text
//	default:"value"                parsed as the field's type
//
// Field types: string, bool, int, int64, float64, time.Duration,
// []string (repeatable, never split on commas), []int64 (repeatable or
// comma-separated), and anything whose pointer is a pflag.Value.
// Untagged embedded structs are walked recursively.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	pointer := reflect.ValueOf(params)
	if pointer.Kind() != reflect.Pointer || pointer.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(pointer.Elem(), flagSet)
}

func bindStruct(value reflect.Value, flagSet *pflag.FlagSet) error {
	for index := range value.NumField() {
		field := value.Type().Field(index)
		fieldValue := value.Field(index)

		if field.Type.Kind() == reflect.Struct {
			if binder, ok := asFlagBinder(field, fieldValue); ok {
				binder.AddFlags(flagSet)
				continue
			}
			if field.Anonymous {
				if err := bindStruct(fieldValue, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		tags := flagTags{description: field.Tag.Get("desc"), defaultText: field.Tag.Get("default")}
		tags.name, tags.shorthand, _ = strings.Cut(tag, ",")

		if err := tags.bind(fieldValue.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func asFlagBinder(field reflect.StructField, value reflect.Value) (FlagBinder, bool) {
	if !field.IsExported() || !value.CanAddr() {
		return nil, false
	}
	binder, ok := value.Addr().Interface().(FlagBinder)
	return binder, ok
}

// flagTags is one field's parsed tags.
type flagTags struct {
	name        string
	shorthand   string
	description string
	defaultText string
}

func (s flagTags) bind(target any, flagSet *pflag.FlagSet) error {
	var err error
	switch target := target.(type) {
	case *string:
		flagSet.StringVarP(target, s.name, s.shorthand, s.defaultText, s.description)
	case *bool:
		err = bindParsed(s, target, strconv.ParseBool, flagSet.BoolVarP)
	case *int:
		err = bindParsed(s, target, strconv.Atoi, flagSet.IntVarP)
	case *int64:
		err = bindParsed(s, target, parseInt64, flagSet.Int64VarP)
	case *float64:
		err = bindParsed(s, target, parseFloat64, flagSet.Float64VarP)
	case *time.Duration:
		err = bindParsed(s, target, time.ParseDuration, flagSet.DurationVarP)
	case *[]string:
		var initial []string
		if s.defaultText != "" {
			initial = strings.Split(s.defaultText, ",")
		}
		flagSet.StringArrayVarP(target, s.name, s.shorthand, initial, s.description)
	case *[]int64:
		err = bindParsed(s, target, parseInt64List, flagSet.Int64SliceVarP)
	case pflag.Value:
		if s.defaultText != "" {
			err = target.Set(s.defaultText)
		}
		flagSet.VarP(target, s.name, s.shorthand, s.description)
	default:
		return fmt.Errorf("unsupported type %s for flag --%s", reflect.TypeOf(target).Elem(), s.name)
	}
	if err != nil {
		return fmt.Errorf("default for --%s: %w", s.name, err)
	}
	return nil
}

// bindParsed parses the default with parse (an empty default is the
// zero value) and registers the flag with register.
func bindParsed[T any](
	s flagTags,
	target *T,
	parse func(string) (T, error),
	register func(*T, string, string, T, string),
) error {
	var initial T
	if s.defaultText != "" {
		parsed, err := parse(s.defaultText)
		if err != nil {
			return err
		}
		initial = parsed
	}
	register(target, s.name, s.shorthand, initial, s.description)
	return nil
}

func parseInt64(text string) (int64, error) {
	return strconv.ParseInt(text, 10, 64)
}

func parseFloat64(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

func parseInt64List(text string) ([]int64, error) {
	var values []int64
	for _, item := range strings.Split(text, ",") {
		value, err := parseInt64(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// OptionalFloat is a float flag whose Value stays nil unless the flag
// is given, so "--at 0" and no --at differ.
type OptionalFloat struct {
	Value *float64
}

func (f *OptionalFloat) Set(text string) error {
	parsed, err := parseFloat64(text)
	if err != nil {
		return err
	}
	f.Value = &parsed
	return nil
}

func (f *OptionalFloat) String() string {
	if f.Value == nil {
		return ""
	}
	return strconv.FormatFloat(*f.Value, 'g', -1, 64)
}

func (f *OptionalFloat) Type() string { return "float" }
