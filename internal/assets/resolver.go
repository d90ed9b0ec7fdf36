package assets

import "errors"

// AssetResolver looks assets up in the user directory first and falls back
// to the embedded set when the name is not there.
type AssetResolver struct {
	custom   AssetLoader // nil without markdown.assets
	embedded AssetLoader
}

// NewAssetResolver returns a resolver over dir. An empty dir means embedded
// assets only; a dir that is not a readable directory is an error.
func NewAssetResolver(dir string) (*AssetResolver, error) {
	r := &AssetResolver{embedded: NewEmbeddedLoader()}
	if dir == "" {
		return r, nil
	}
	custom, err := NewFilesystemLoader(dir)
	if err != nil {
		return nil, err
	}
	r.custom = custom
	return r, nil
}

// LoadStyle returns the named page style.
func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return r.first(func(l AssetLoader) (string, error) { return l.LoadStyle(name) })
}

// LoadTemplate returns the named document template.
func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	return r.first(func(l AssetLoader) (string, error) { return l.LoadTemplate(name) })
}

// first tries the custom loader, then the embedded one. Only a missing
// asset falls through: invalid names and read errors surface as is.
func (r *AssetResolver) first(load func(AssetLoader) (string, error)) (string, error) {
	if r.custom != nil {
		content, err := load(r.custom)
		if err == nil || !missing(err) {
			return content, err
		}
	}
	return load(r.embedded)
}

func missing(err error) bool {
	return errors.Is(err, ErrStyleNotFound) || errors.Is(err, ErrTemplateNotFound)
}

// HasCustomLoader reports whether a user asset directory is configured.
func (r *AssetResolver) HasCustomLoader() bool {
	return r.custom != nil
}

var _ AssetLoader = (*AssetResolver)(nil)
