package loader

import (
	"os"
	"path/filepath"

	"github.com/zboralski/xelf/internal/loaderr"
)

// LoadClosure loads root and then its full DT_NEEDED dependency closure,
// breadth-first: each level's dependencies are collected from the objects
// newly loaded in the previous level, resolved in the order their NEEDED
// entries appear. The closure is done once a level yields only objects
// already present (cache hits).
func (l *Loader) LoadClosure(root string) (int, error) {
	rootIdx, err := l.Load(root)
	if err != nil {
		return 0, err
	}

	frontier := []int{rootIdx}
	for len(frontier) > 0 {
		var nextFrontier []int
		anyFresh := false
		for _, idx := range frontier {
			for _, needed := range l.Objects[idx].View.Needed {
				res, err := l.GetObject(needed)
				if err != nil {
					return 0, err
				}
				if res.Fresh {
					anyFresh = true
					nextFrontier = append(nextFrontier, res.Index)
				}
			}
		}
		if !anyFresh {
			break
		}
		frontier = nextFrontier
	}
	return rootIdx, nil
}

// GetObject resolves name against the search path to an absolute
// canonical path. If that path is already loaded, it returns Cached;
// otherwise it loads it fresh.
func (l *Loader) GetObject(needed string) (Resolution, error) {
	canon, err := l.resolve(needed)
	if err != nil {
		return Resolution{}, err
	}
	if idx, ok := l.byPath[canon]; ok {
		return Resolution{Index: idx, Fresh: false}, nil
	}
	idx, err := l.Load(canon)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Index: idx, Fresh: true}, nil
}

// resolve finds the first directory in the search path containing name,
// in order, and returns its canonical (symlink-resolved, absolute) path.
func (l *Loader) resolve(needed string) (string, error) {
	for _, dir := range l.SearchPath {
		candidate := filepath.Join(dir, needed)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		canon, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(canon); err == nil {
			canon = resolved
		}
		return canon, nil
	}
	return "", loaderr.New(loaderr.NotFound, needed, "", 0, nil)
}
