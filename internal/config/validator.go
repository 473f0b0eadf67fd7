package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	fserrors "github.com/standardbeagle/filesearch/internal/errors"
)

// maxFileSizeLimit caps search.max_file_size.
const maxFileSizeLimit = GB

// Validate reports every invalid setting at once as a MultiError of
// *errors.ConfigError values, or nil.
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, value any, err error) {
		errs = append(errs, fserrors.NewConfigError(field, fmt.Sprint(value), err))
	}

	if c.Workspace.Root == "" {
		add("workspace.root", "", errors.New("workspace root cannot be empty"))
	}
	if !strings.HasPrefix(c.Workspace.FileRoot, "/") {
		add("workspace.file_root", c.Workspace.FileRoot, errors.New("file root must start with /"))
	}

	s := c.Search
	if s.MaxFileSize <= 0 {
		add("search.max_file_size", s.MaxFileSize, errors.New("must be positive"))
	} else if s.MaxFileSize > maxFileSizeLimit {
		add("search.max_file_size", s.MaxFileSize, fmt.Errorf("should not exceed %s", maxFileSizeLimit))
	}
	if s.Workers < 0 {
		add("search.workers", s.Workers, errors.New("cannot be negative"))
	}
	if s.DefaultRows <= 0 {
		add("search.default_rows", s.DefaultRows, errors.New("must be positive"))
	}
	if s.MaxRows < s.DefaultRows {
		add("search.max_rows", s.MaxRows, fmt.Errorf("must be at least default_rows (%d)", s.DefaultRows))
	}
	if s.TimeoutMs < 0 {
		add("search.timeout_ms", s.TimeoutMs, errors.New("cannot be negative"))
	}
	if s.WatchDebounceMs < 0 {
		add("search.watch_debounce_ms", s.WatchDebounceMs, errors.New("cannot be negative"))
	}

	for i, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			add("exclude["+strconv.Itoa(i)+"]", pattern, doublestar.ErrBadPattern)
		}
	}

	if c.Server.Addr == "" {
		add("server.addr", "", errors.New("listen address cannot be empty"))
	}

	return fserrors.NewMultiError(errs).ErrOrNil()
}
