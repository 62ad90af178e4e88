package vfs

// replace installs fsys under key unconditionally and returns the previous
// mapping.
func (r *registry) replace(key string, fsys *FileSystem) *FileSystem {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.fileSystems[key]
	r.fileSystems[key] = fsys
	return prev
}
