package index

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
)

// Author signs index commits.
type Author struct {
	Name  string
	Email string
}

// GitIndex appends entries to a local git repository, one commit per entry.
type GitIndex struct {
	mu     sync.Mutex
	repo   *git.Repository
	author Author
	now    func() time.Time
}

// Open opens the repository at dir, initializing it when absent.
func Open(dir string, author Author) (*GitIndex, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening index at %s", dir)
	}
	return New(repo, author), nil
}

// New wraps an already opened repository, which must have a worktree.
func New(repo *git.Repository, author Author) *GitIndex {
	return &GitIndex{repo: repo, author: author, now: time.Now}
}

// Append adds e to its crate file and commits it. A version that is already
// present in the file is rejected.
func (g *GitIndex) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	w, err := g.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "accessing worktree")
	}
	p := EntryPath(e.Name)

	existing, err := readFile(w, p)
	if err != nil {
		return errors.Wrapf(err, "reading %s", p)
	}
	if err := checkDuplicate(existing, e.Vers); err != nil {
		return err
	}

	line, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encoding entry")
	}
	content := append(existing, line...)
	content = append(content, '\n')

	if err := writeFile(w, p, content); err != nil {
		g.restore(w)
		return errors.Wrapf(err, "writing %s", p)
	}
	if _, err := w.Add(p); err != nil {
		g.restore(w)
		return errors.Wrapf(err, "staging %s", p)
	}
	_, err = w.Commit(fmt.Sprintf("Updating crate `%s#%s`", e.Name, e.Vers), &git.CommitOptions{
		Author: &object.Signature{Name: g.author.Name, Email: g.author.Email, When: g.now()},
	})
	if err != nil {
		g.restore(w)
		return errors.Wrap(err, "committing entry")
	}
	return nil
}

// Entries returns all index lines of a crate.
func (g *GitIndex) Entries(name string) ([]Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	w, err := g.repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "accessing worktree")
	}
	content, err := readFile(w, EntryPath(name))
	if err != nil {
		return nil, err
	}
	var out []Entry
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, errors.Wrap(err, "decoding entry")
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// restore drops uncommitted changes so a failed append leaves no trace.
func (g *GitIndex) restore(w *git.Worktree) {
	if _, err := g.repo.Head(); err != nil {
		return
	}
	_ = w.Reset(&git.ResetOptions{Mode: git.HardReset})
}

func readFile(w *git.Worktree, p string) ([]byte, error) {
	f, err := w.Filesystem.Open(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeFile(w *git.Worktree, p string, content []byte) error {
	if err := w.Filesystem.MkdirAll(path.Dir(p), 0755); err != nil {
		return err
	}
	f, err := w.Filesystem.Create(p)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func checkDuplicate(content []byte, vers string) error {
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		var e struct {
			Vers string `json:"vers"`
		}
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return errors.Wrap(err, "decoding existing entry")
		}
		if e.Vers == vers {
			return errors.Errorf("version `%s` is already in the index", vers)
		}
	}
	return sc.Err()
}
