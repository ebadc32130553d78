package builtin

import (
	"embed"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"path"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
)

//go:embed assets
var assets embed.FS

const (
	fileData         = "data.json"
	fileSchema       = "schema.json"
	fileUISchema     = "uischema.json"
	fileEventHandler = "eventhandler.js"
)

// bundle is the set of static documents one handler serves. A missing file
// means the capability is not supported.
type bundle string

func (b bundle) read(name string) ([]byte, bool, error) {
	data, err := assets.ReadFile(path.Join("assets", string(b), name))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (b bundle) document(name string) handler.Result[json.RawMessage] {
	data, ok, err := b.read(name)
	switch {
	case err != nil:
		return handler.Failed[json.RawMessage](errors.Wrap(err, "bundle", "document", "read "+name))
	case !ok:
		return handler.NotSupported[json.RawMessage]()
	case !json.Valid(data):
		return handler.Failed[json.RawMessage](errors.WrapInvalid(errors.ErrParsingFailed,
			"bundle", "document", string(b)+"/"+name))
	default:
		return handler.Supported(json.RawMessage(data))
	}
}

func (b bundle) script() handler.Result[string] {
	data, ok, err := b.read(fileEventHandler)
	switch {
	case err != nil:
		return handler.Failed[string](errors.Wrap(err, "bundle", "script", "read "+fileEventHandler))
	case !ok:
		return handler.NotSupported[string]()
	default:
		return handler.Supported(string(data))
	}
}
