package pipeline

import (
	"errors"

	"dataingest/internal/config"
	"dataingest/internal/fetch"
	"dataingest/internal/normalize"
	"dataingest/internal/split"
	"dataingest/internal/store"
)

// Error kinds reported in logs and in the run history.
const (
	KindConfigNotFound = "ConfigNotFound"
	KindConfigParse    = "ConfigParseError"
	KindConfigInvalid  = "ConfigInvalid"
	KindFetch          = "FetchError"
	KindParse          = "ParseError"
	KindSchema         = "SchemaError"
	KindSplit          = "SplitError"
	KindWrite          = "WriteError"
	KindUnexpected     = "UnexpectedError"
)

var kinds = []struct {
	target error
	kind   string
}{
	{config.ErrConfigNotFound, KindConfigNotFound},
	{config.ErrConfigParse, KindConfigParse},
	{config.ErrConfigInvalid, KindConfigInvalid},
	{fetch.ErrParse, KindParse},
	{fetch.ErrFetch, KindFetch},
	{normalize.ErrSchema, KindSchema},
	{split.ErrSplit, KindSplit},
	{store.ErrWrite, KindWrite},
}

// Kind classifies an error returned by Run. It returns "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindUnexpected
}
