package resolve

import (
	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// DetectLocalRevision resolves the current revision of a working copy at
// path, used when a bin-deps entry uses the {path, bin-pkg[]} object form
// pointing at a local checkout rather than a registry coordinate. It
// returns the repository type and revision only; nothing in this
// repository adds the revision to the resolution cache key or to
// moon.lock.json.
// Grounded on vcs_repo.go/vcs_source.go, which use the same library to pin
// a concrete revision behind a non-registry import path.
func DetectLocalRevision(path string) (repoType, revision string, err error) {
	vtype, err := vcs.DetectVcsFromFS(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "detecting vcs repository type at %s", path)
	}

	var repo vcs.Repo
	switch vtype {
	case vcs.Git:
		repo, err = vcs.NewGitRepo(path, path)
	case vcs.Hg:
		repo, err = vcs.NewHgRepo(path, path)
	case vcs.Svn:
		repo, err = vcs.NewSvnRepo(path, path)
	case vcs.Bzr:
		repo, err = vcs.NewBzrRepo(path, path)
	default:
		return "", "", errors.Errorf("unsupported vcs type %q at %s", vtype, path)
	}
	if err != nil {
		return "", "", errors.Wrapf(err, "constructing %s repo at %s", vtype, path)
	}

	rev, err := repo.Version()
	if err != nil {
		return "", "", errors.Wrapf(err, "reading current revision at %s", path)
	}
	return string(vtype), rev, nil
}
