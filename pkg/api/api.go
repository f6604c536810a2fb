// Package api exposes a mounted filesystem over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/weberc2/extentfs/pkg/fs"
	. "github.com/weberc2/extentfs/pkg/types"
	pz "github.com/weberc2/httpeasy"
)

const DefaultMaxBodySize = 16 << 20

type API struct {
	FileSystem *fs.FileSystem

	// MaxBodySize caps uploaded file contents. Zero means
	// DefaultMaxBodySize.
	MaxBodySize int64
}

type logging struct {
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (api *API) Routes() []pz.Route {
	return []pz.Route{
		api.StatfsRoute(),
		api.StatRoute(),
		api.ListDirRoute(),
		api.MakeDirRoute(),
		api.GetFileRoute(),
		api.PutFileRoute(),
		api.DeleteFileRoute(),
		api.TreeRoute(),
		api.SyncRoute(),
		api.CheckRoute(),
	}
}

func (api *API) StatfsRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/statfs",
		Handler: func(r pz.Request) pz.Response {
			statfs, err := api.FileSystem.Statfs()
			if err != nil {
				return handleError("statfs", "", err)
			}
			return pz.Ok(pz.JSON(&statfs))
		},
	}
}

func (api *API) StatRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/stat/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			ino, err := api.FileSystem.LookupPath(path)
			if err != nil {
				return handleError("looking up path", path, err)
			}
			stat, err := api.FileSystem.Stat(ino)
			if err != nil {
				return handleError("stat", path, err)
			}
			return pz.Ok(pz.JSON(&stat))
		},
	}
}

func (api *API) ListDirRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/dirs/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			ino, err := api.FileSystem.LookupPath(path)
			if err != nil {
				return handleError("looking up directory", path, err)
			}
			entries, err := api.FileSystem.ReadDir(ino)
			if err != nil {
				return handleError("reading directory", path, err)
			}
			return pz.Ok(pz.JSON(entries))
		},
	}
}

func (api *API) MakeDirRoute() pz.Route {
	return pz.Route{
		Method: "POST",
		Path:   "/api/dirs/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			ino, err := api.FileSystem.CreatePath(path, FileTypeDir)
			if err != nil {
				return handleError("creating directory", path, err)
			}
			return api.stat(http.StatusCreated, path, ino)
		},
	}
}

func (api *API) GetFileRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/files/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			data, err := api.FileSystem.ReadFile(path)
			if err != nil {
				return handleError("reading file", path, err)
			}
			return pz.Ok(pz.String(string(data)))
		},
	}
}

func (api *API) PutFileRoute() pz.Route {
	return pz.Route{
		Method: "PUT",
		Path:   "/api/files/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			data, err := api.readBody(r)
			if err != nil {
				return handleError("reading request body", path, err)
			}
			ino, err := api.FileSystem.WriteFile(path, data)
			if err != nil {
				return handleError("writing file", path, err)
			}
			return api.stat(http.StatusOK, path, ino)
		},
	}
}

func (api *API) DeleteFileRoute() pz.Route {
	return pz.Route{
		Method: "DELETE",
		Path:   "/api/files/{path:.*}",
		Handler: func(r pz.Request) pz.Response {
			path := r.Vars["path"]
			if err := api.FileSystem.DeletePath(path); err != nil {
				return handleError("deleting", path, err)
			}
			return pz.Ok(
				pz.Stringf("deleted `%s`", path),
				&logging{Message: "deleted", Path: path},
			)
		},
	}
}

func (api *API) TreeRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/tree",
		Handler: func(r pz.Request) pz.Response {
			tree, err := api.FileSystem.Tree(InoRoot)
			if err != nil {
				return handleError("building tree", "", err)
			}
			return pz.Ok(pz.JSON(&tree))
		},
	}
}

func (api *API) SyncRoute() pz.Route {
	return pz.Route{
		Method: "POST",
		Path:   "/api/sync",
		Handler: func(r pz.Request) pz.Response {
			if err := api.FileSystem.Sync(); err != nil {
				return handleError("syncing", "", err)
			}
			return pz.Ok(pz.String("synced"), &logging{Message: "synced"})
		},
	}
}

func (api *API) CheckRoute() pz.Route {
	return pz.Route{
		Method: "GET",
		Path:   "/api/check",
		Handler: func(r pz.Request) pz.Response {
			if err := api.FileSystem.Check(); err != nil {
				return handleError("checking", "", err)
			}
			return pz.Ok(pz.String("ok"))
		},
	}
}

func (api *API) stat(status int, path string, ino Ino) pz.Response {
	stat, err := api.FileSystem.Stat(ino)
	if err != nil {
		return handleError("stat", path, err)
	}
	return pz.Response{
		Status: status,
		Data:   pz.JSON(&stat),
	}.WithLogging(&logging{Message: "updated", Path: path})
}

func (api *API) readBody(r pz.Request) ([]byte, error) {
	max := api.MaxBodySize
	if max < 1 {
		max = DefaultMaxBodySize
	}
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf(
			"body exceeds `%d` bytes: %w",
			max,
			InvalidArgumentErr,
		)
	}
	return data, nil
}

// Status maps an error kind onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, NotFoundErr):
		return http.StatusNotFound
	case errors.Is(err, AlreadyExistsErr), errors.Is(err, NotEmptyErr):
		return http.StatusConflict
	case errors.Is(err, InvalidArgumentErr),
		errors.Is(err, NotDirErr),
		errors.Is(err, IsDirErr),
		errors.Is(err, HoleReadErr):
		return http.StatusBadRequest
	case errors.Is(err, ExhaustedErr),
		errors.Is(err, DirFullErr),
		errors.Is(err, IndexFullErr):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func handleError(message, path string, err error) pz.Response {
	status := Status(err)
	public := message
	if status != http.StatusInternalServerError {
		public = err.Error()
	}
	return pz.Response{
		Status: status,
		Data:   pz.JSON(&pz.HTTPError{Status: status, Message: public}),
	}.WithLogging(&logging{
		Message:   message,
		Path:      path,
		ErrorType: fmt.Sprintf("%T", err),
		Error:     err.Error(),
	})
}
