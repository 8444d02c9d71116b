package port

// FileResolver expands a file, directory or glob into the files it names.
type FileResolver interface {
	Resolve(target string) ([]string, error)
}
