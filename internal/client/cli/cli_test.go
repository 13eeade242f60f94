package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/joaopapereira/crates.io/internal/client/client"
	"github.com/joaopapereira/crates.io/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	calls      []string
	lastMeta   any
	lastTar    []byte
	lastLogins []string
	lastSearch client.SearchOptions
	following  bool
	err        error
	closed     bool
}

func (f *fakeRegistry) note(call string) { f.calls = append(f.calls, call) }

func (f *fakeRegistry) Publish(_ context.Context, meta any, tarball []byte) (client.Response, error) {
	f.note("publish")
	f.lastMeta, f.lastTar = meta, tarball
	return client.Response{"krate": map[string]any{"name": "foo"}}, f.err
}

func (f *fakeRegistry) Show(_ context.Context, name string) (client.Response, error) {
	f.note("show " + name)
	return client.Response{"crate": map[string]any{"name": name}}, f.err
}

func (f *fakeRegistry) Versions(_ context.Context, name string) (client.Response, error) {
	f.note("versions " + name)
	return client.Response{"versions": []any{}}, f.err
}

func (f *fakeRegistry) Owners(_ context.Context, name string) (client.Response, error) {
	f.note("owners " + name)
	return client.Response{"users": []any{}}, f.err
}

func (f *fakeRegistry) AddOwners(_ context.Context, name string, logins []string) error {
	f.note("add " + name)
	f.lastLogins = logins
	return f.err
}

func (f *fakeRegistry) RemoveOwners(_ context.Context, name string, logins []string) error {
	f.note("remove " + name)
	f.lastLogins = logins
	return f.err
}

func (f *fakeRegistry) Search(_ context.Context, o client.SearchOptions) (client.Response, error) {
	f.note("search")
	f.lastSearch = o
	return client.Response{"crates": []any{}}, f.err
}

func (f *fakeRegistry) ReverseDependencies(_ context.Context, name string, _, _ int) (client.Response, error) {
	f.note("rdeps " + name)
	return client.Response{}, f.err
}

func (f *fakeRegistry) Summary(context.Context) (client.Response, error) {
	f.note("summary")
	return client.Response{"num_crates": 1}, f.err
}

func (f *fakeRegistry) Downloads(_ context.Context, name string) (client.Response, error) {
	f.note("downloads " + name)
	return client.Response{}, f.err
}

func (f *fakeRegistry) Download(_ context.Context, name, vers string) (string, error) {
	f.note("download " + name + " " + vers)
	return "https://static.example/" + name + "-" + vers + ".crate", f.err
}

func (f *fakeRegistry) Follow(_ context.Context, name string) error {
	f.note("follow " + name)
	return f.err
}

func (f *fakeRegistry) Unfollow(_ context.Context, name string) error {
	f.note("unfollow " + name)
	return f.err
}

func (f *fakeRegistry) Following(_ context.Context, name string) (bool, error) {
	f.note("following " + name)
	return f.following, f.err
}

func (f *fakeRegistry) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, fake *fakeRegistry, args ...string) (string, *config.Config, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv("CRATES_TOKEN", "")

	var got *config.Config
	c := New(io.Discard, func(cfg *config.Config) (Registry, error) {
		got = cfg
		return fake, nil
	})
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), got, err
}

func TestShow(t *testing.T) {
	fake := &fakeRegistry{}

	out, cfg, err := run(t, fake, "show", "serde")
	require.NoError(t, err)

	assert.Equal(t, []string{"show serde"}, fake.calls)
	assert.JSONEq(t, `{"crate":{"name":"serde"}}`, out)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.True(t, fake.closed)
}

func TestFlagsOverrideConfig(t *testing.T) {
	fake := &fakeRegistry{}

	_, cfg, err := run(t, fake, "--addr", "registry:1", "--token", "tok", "summary")
	require.NoError(t, err)
	assert.Equal(t, "registry:1", cfg.ServerEndpointAddr)
	assert.Equal(t, "tok", cfg.Token)
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "metadata.json")
	crate := filepath.Join(dir, "foo-1.0.0.crate")
	require.NoError(t, os.WriteFile(meta, []byte(`{"name":"foo","vers":"1.0.0"}`), 0o600))
	require.NoError(t, os.WriteFile(crate, []byte("tarball"), 0o600))

	fake := &fakeRegistry{}
	out, _, err := run(t, fake, "publish", crate, "-m", meta)
	require.NoError(t, err)

	raw, ok := fake.lastMeta.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"foo","vers":"1.0.0"}`, string(raw))
	assert.Equal(t, []byte("tarball"), fake.lastTar)
	assert.Contains(t, out, `"krate"`)
}

func TestPublish_InvalidMetadata(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "metadata.json")
	require.NoError(t, os.WriteFile(meta, []byte(`{`), 0o600))

	fake := &fakeRegistry{}
	_, _, err := run(t, fake, "publish", filepath.Join(dir, "x.crate"), "-m", meta)
	assert.ErrorContains(t, err, "not valid JSON")
	assert.Empty(t, fake.calls)
}

func TestOwnerAddRemove(t *testing.T) {
	fake := &fakeRegistry{}

	out, _, err := run(t, fake, "owner", "add", "foo", "bob", "github:rust-lang:core")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "github:rust-lang:core"}, fake.lastLogins)
	assert.Equal(t, "added 2 owner(s) to foo\n", out)

	out, _, err = run(t, fake, "owner", "remove", "foo", "bob")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 owner(s) from foo\n", out)

	_, _, err = run(t, fake, "owner", "add", "foo")
	assert.Error(t, err)
}

func TestSearchFlags(t *testing.T) {
	fake := &fakeRegistry{}

	_, _, err := run(t, fake, "search", "http", "--sort", "downloads", "--page", "2", "--per-page", "20", "--category", "web")
	require.NoError(t, err)
	assert.Equal(t, client.SearchOptions{Query: "http", Sort: "downloads", Page: 2, PerPage: 20, Category: "web"}, fake.lastSearch)
}

func TestDownload(t *testing.T) {
	fake := &fakeRegistry{}

	out, _, err := run(t, fake, "download", "foo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "https://static.example/foo-1.0.0.crate\n", out)
}

func TestUnfollow_Check(t *testing.T) {
	fake := &fakeRegistry{}

	out, _, err := run(t, fake, "unfollow", "--check", "foo")
	require.NoError(t, err)
	assert.Equal(t, "not following foo\n", out)
	assert.Equal(t, []string{"following foo"}, fake.calls)
}

func TestErrorsPropagate(t *testing.T) {
	fake := &fakeRegistry{err: errors.New("cannot remove yourself as an owner")}

	_, _, err := run(t, fake, "owner", "remove", "foo", "me")
	assert.EqualError(t, err, "cannot remove yourself as an owner")
}
