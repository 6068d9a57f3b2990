package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single rejected setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// Validate returns every invalid setting in c, or nil.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(c.Lobby.Bucket) == "" {
		errs = append(errs, ValidationError{Field: "lobby.bucket", Value: c.Lobby.Bucket, Message: "must not be empty"})
	}
	if c.Lobby.MaxMembers <= 0 {
		errs = append(errs, ValidationError{Field: "lobby.max_members", Value: c.Lobby.MaxMembers, Message: "must be positive"})
	}
	if c.Lobby.SearchMaxResults < 0 {
		errs = append(errs, ValidationError{Field: "lobby.search_max_results", Value: c.Lobby.SearchMaxResults, Message: "must not be negative"})
	}
	if c.Friends.MappingInterval < 0 {
		errs = append(errs, ValidationError{Field: "friends.mapping_interval", Value: c.Friends.MappingInterval, Message: "must not be negative"})
	}
	if c.Tick.Interval <= 0 {
		errs = append(errs, ValidationError{Field: "tick.interval", Value: c.Tick.Interval, Message: "must be positive"})
	}
	if c.Wait.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "wait.timeout", Value: c.Wait.Timeout, Message: "must be positive"})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
