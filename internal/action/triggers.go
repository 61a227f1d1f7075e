package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spachava753/pottery/internal/api"
	"github.com/spachava753/pottery/internal/models"
)

// Trigger binds a name to the request it issues and the fields it updates
// when the request succeeds.
type Trigger struct {
	Name    string
	Method  string
	Pattern string // path with {field} placeholders, for display only
	Usage   string

	// Build assembles the request from the current field values.
	Build func(f models.Fields) (api.Request, error)

	// Copy extracts field updates from a successful reply. May be nil.
	Copy func(body []byte) models.Fields
}

var triggers = []Trigger{
	{
		Name:    "list-tasks",
		Method:  http.MethodGet,
		Pattern: "api/tasks",
		Usage:   "List all tasks",
		Build:   get(func(models.Fields) string { return api.TasksPath() }),
		Copy:    copyFromFirst("taskId", models.FieldTaskID),
	},
	{
		Name:    "list-released-tasks",
		Method:  http.MethodGet,
		Pattern: "api/tasks/released",
		Usage:   "List released tasks",
		Build:   get(func(models.Fields) string { return api.ReleasedTasksPath() }),
	},
	{
		Name:    "list-retired-tasks",
		Method:  http.MethodGet,
		Pattern: "api/tasks/retired",
		Usage:   "List retired tasks",
		Build:   get(func(models.Fields) string { return api.RetiredTasksPath() }),
	},
	{
		Name:    "create-task",
		Method:  http.MethodPost,
		Pattern: "api/tasks/create",
		Usage:   "Create a task",
		Build: func(models.Fields) (api.Request, error) {
			return api.Request{Method: http.MethodPost, Path: api.CreateTaskPath()}, nil
		},
		Copy: copyFrom("taskId", models.FieldTaskID),
	},
	{
		Name:    "release-task",
		Method:  http.MethodPost,
		Pattern: "api/tasks/{taskId}/release",
		Usage:   "Release a task at the given sha1",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{
				Method: http.MethodPost,
				Path:   api.ReleaseTaskPath(f.Get(models.FieldTaskID)),
				Form:   url.Values{"sha1": {f.Get(models.FieldSHA1)}},
			}, nil
		},
	},
	{
		Name:    "create-repo",
		Method:  http.MethodPost,
		Pattern: "api/repo",
		Usage:   "Create a repo for the task",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{
				Method: http.MethodPost,
				Path:   api.ReposPath(),
				Form:   url.Values{"taskId": {f.Get(models.FieldTaskID)}},
			}, nil
		},
		Copy: copyFrom("repoId", models.FieldRepoID),
	},
	{
		Name:    "list-repo",
		Method:  http.MethodGet,
		Pattern: "api/repo/{repoId}/{repoTag}",
		Usage:   "List repo contents at a tag",
		Build: get(func(f models.Fields) string {
			return api.RepoTagPath(f.Get(models.FieldRepoID), f.Get(models.FieldRepoTag))
		}),
	},
	{
		Name:    "update-file",
		Method:  http.MethodPost,
		Pattern: "api/repo/{repoId}/{repoTag}/{fileName}",
		Usage:   "Upload the local file named by the file field",
		Build:   buildUpload,
	},
	{
		Name:    "delete-file",
		Method:  http.MethodDelete,
		Pattern: "api/repo/{repoId}/{repoTag}/{fileName}",
		Usage:   "Delete a file from the repo",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{Method: http.MethodDelete, Path: repoFilePath(f)}, nil
		},
	},
	{
		Name:    "reset-repo",
		Method:  http.MethodPost,
		Pattern: "api/repo/{repoId}/reset/{repoTag}",
		Usage:   "Reset the repo to a tag",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{
				Method: http.MethodPost,
				Path:   api.RepoResetPath(f.Get(models.FieldRepoID), f.Get(models.FieldRepoTag)),
			}, nil
		},
	},
	{
		Name:    "read-file",
		Method:  http.MethodGet,
		Pattern: "api/repo/{repoId}/{repoTag}/{fileName}",
		Usage:   "Read a file from the repo",
		Build:   get(repoFilePath),
	},
	{
		Name:    "tag-repo",
		Method:  http.MethodPost,
		Pattern: "api/repo/{repoId}",
		Usage:   "Tag the current repo state",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{Method: http.MethodPost, Path: api.RepoPath(f.Get(models.FieldRepoID))}, nil
		},
		Copy: copyFrom("tag", models.FieldSubmissionTag),
	},
	{
		Name:    "request-test",
		Method:  http.MethodPost,
		Pattern: "api/submissions/{repoId}/{submissionTag}",
		Usage:   "Request grading of a tag",
		Build: func(f models.Fields) (api.Request, error) {
			return api.Request{Method: http.MethodPost, Path: submissionPath(f)}, nil
		},
	},
	{
		Name:    "poll-status",
		Method:  http.MethodGet,
		Pattern: "api/submissions/{repoId}/{submissionTag}",
		Usage:   "Poll grading status",
		Build:   get(submissionPath),
	},
}

// Triggers returns every known trigger in declaration order.
func Triggers() []Trigger {
	out := make([]Trigger, len(triggers))
	copy(out, triggers)
	return out
}

// Lookup finds a trigger by name.
func Lookup(name string) (Trigger, bool) {
	for _, t := range triggers {
		if t.Name == name {
			return t, true
		}
	}
	return Trigger{}, false
}

func get(path func(models.Fields) string) func(models.Fields) (api.Request, error) {
	return func(f models.Fields) (api.Request, error) {
		return api.Request{Method: http.MethodGet, Path: path(f)}, nil
	}
}

func repoFilePath(f models.Fields) string {
	return api.RepoFilePath(f.Get(models.FieldRepoID), f.Get(models.FieldRepoTag), f.Get(models.FieldFileName))
}

func submissionPath(f models.Fields) string {
	return api.SubmissionPath(f.Get(models.FieldRepoID), f.Get(models.FieldSubmissionTag))
}

// buildUpload sends the local file as the "file" part. An empty file field
// sends an empty part, like a form submitted with no file chosen.
func buildUpload(f models.Fields) (api.Request, error) {
	upload := &api.Upload{FileName: f.Get(models.FieldFileName)}

	if local := f.Get(models.FieldFile); local != "" {
		data, err := os.ReadFile(local)
		if err != nil {
			return api.Request{}, fmt.Errorf("reading upload file: %w", err)
		}
		upload.Content = data
		if upload.FileName == "" {
			upload.FileName = filepath.Base(local)
		}
	}

	return api.Request{Method: http.MethodPost, Path: repoFilePath(f), Upload: upload}, nil
}

func copyFrom(key, field string) func([]byte) models.Fields {
	return func(body []byte) models.Fields {
		var obj map[string]any
		if err := decode(body, &obj); err != nil {
			return nil
		}
		return pick(obj, key, field)
	}
}

func copyFromFirst(key, field string) func([]byte) models.Fields {
	return func(body []byte) models.Fields {
		var arr []map[string]any
		if err := decode(body, &arr); err != nil || len(arr) == 0 {
			return nil
		}
		return pick(arr[0], key, field)
	}
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func pick(obj map[string]any, key, field string) models.Fields {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		s = string(data)
	}
	return models.Fields{field: s}
}
