package api

// Paths are built by joining field values with "/" and nothing else.
// Values are not escaped or checked; an empty value yields an empty segment.

// TasksPath lists all tasks.
func TasksPath() string { return "api/tasks" }

// ReleasedTasksPath lists released tasks.
func ReleasedTasksPath() string { return "api/tasks/released" }

// RetiredTasksPath lists retired tasks.
func RetiredTasksPath() string { return "api/tasks/retired" }

// CreateTaskPath creates a task.
func CreateTaskPath() string { return "api/tasks/create" }

// ReposPath creates a repo.
func ReposPath() string { return "api/repo" }

// ReleaseTaskPath releases a task.
func ReleaseTaskPath(taskID string) string {
	return "api/tasks/" + taskID + "/release"
}

// RepoPath tags the current state of a repo.
func RepoPath(repoID string) string {
	return "api/repo/" + repoID
}

// RepoTagPath lists repo contents at a tag.
func RepoTagPath(repoID, tag string) string {
	return "api/repo/" + repoID + "/" + tag
}

// RepoFilePath reads, uploads or deletes a single file at a tag.
func RepoFilePath(repoID, tag, fileName string) string {
	return "api/repo/" + repoID + "/" + tag + "/" + fileName
}

// RepoResetPath resets a repo to a tag.
func RepoResetPath(repoID, tag string) string {
	return "api/repo/" + repoID + "/reset/" + tag
}

// SubmissionPath requests grading of, or polls, a tagged submission.
func SubmissionPath(repoID, tag string) string {
	return "api/submissions/" + repoID + "/" + tag
}
