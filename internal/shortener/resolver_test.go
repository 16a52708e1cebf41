package shortener

import (
	"context"
	"errors"
	"testing"

	"github.com/sundayezeilo/edgelink/internal/errx"
	"github.com/sundayezeilo/edgelink/internal/query"
)

// mockRepository is a Repository whose behaviour is set per test.
type mockRepository struct {
	createLinkFunc    func(ctx context.Context, key, url string) (string, error)
	findLinkByKeyFunc func(ctx context.Context, key string) (string, error)
	listLinksFunc     func(ctx context.Context) []query.Object
}

func (m *mockRepository) CreateLink(ctx context.Context, key, url string) (string, error) {
	if m.createLinkFunc != nil {
		return m.createLinkFunc(ctx, key, url)
	}
	return "", errors.New("not implemented")
}

func (m *mockRepository) FindLinkByKey(ctx context.Context, key string) (string, error) {
	if m.findLinkByKeyFunc != nil {
		return m.findLinkByKeyFunc(ctx, key)
	}
	return "", errors.New("not implemented")
}

func (m *mockRepository) ListLinks(ctx context.Context) []query.Object {
	if m.listLinksFunc != nil {
		return m.listLinksFunc(ctx)
	}
	return []query.Object{}
}

func TestResolver_Resolve(t *testing.T) {
	notFound := errx.E("shortener.repo.FindLinkByKey", errx.NotFound,
		&LookupError{Key: "xyz", Reason: ReasonNotFound, Err: query.ErrNoRecords})
	unavailable := errx.E("shortener.repo.FindLinkByKey", errx.Unavailable,
		&LookupError{Key: "abc", Reason: ReasonUnavailable, Err: errors.New("connection refused")})

	tests := []struct {
		name    string
		key     string
		find    func(ctx context.Context, key string) (string, error)
		want    Outcome
		wantErr error
	}{
		{
			name: "known key redirects",
			key:  "abc",
			find: func(ctx context.Context, key string) (string, error) {
				if key != "abc" {
					t.Errorf("FindLinkByKey key = %q, want abc", key)
				}
				return "https://example.com", nil
			},
			want: Redirect{URL: "https://example.com"},
		},
		{
			name: "unknown key",
			key:  "xyz",
			find: func(context.Context, string) (string, error) {
				return "", notFound
			},
			want:    NoSuchKey{Key: "xyz", Err: notFound},
			wantErr: notFound,
		},
		{
			name: "engine failure is not distinguished",
			key:  "abc",
			find: func(context.Context, string) (string, error) {
				return "", unavailable
			},
			want:    NoSuchKey{Key: "abc", Err: unavailable},
			wantErr: unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			repo := &mockRepository{findLinkByKeyFunc: func(ctx context.Context, key string) (string, error) {
				calls++
				return tt.find(ctx, key)
			}}

			got := NewResolver(repo, testLogger).Resolve(context.Background(), tt.key)

			switch want := tt.want.(type) {
			case Redirect:
				r, ok := got.(Redirect)
				if !ok || r != want {
					t.Errorf("Resolve() = %#v, want %#v", got, want)
				}
			case NoSuchKey:
				n, ok := got.(NoSuchKey)
				if !ok {
					t.Fatalf("Resolve() = %#v, want NoSuchKey", got)
				}
				if n.Key != want.Key {
					t.Errorf("NoSuchKey.Key = %q, want %q", n.Key, want.Key)
				}
				if !errors.Is(n.Err, tt.wantErr) {
					t.Errorf("NoSuchKey.Err = %v, want %v", n.Err, tt.wantErr)
				}
			}

			if calls != 1 {
				t.Errorf("FindLinkByKey called %d times, want exactly 1", calls)
			}
		})
	}
}

func TestResolver_ThroughRepository(t *testing.T) {
	exec := query.ExecutorFunc(func(ctx context.Context, stmt string, vars query.Vars) ([]query.Response, error) {
		key, _ := vars["key"].(query.String)
		if key == "abc" {
			return []query.Response{rows(linkRecord("1", "abc", "https://example.com"))}, nil
		}
		return []query.Response{rows()}, nil
	})
	resolver := NewResolver(newTestRepo(exec), testLogger)

	if got := resolver.Resolve(context.Background(), "abc"); got != (Redirect{URL: "https://example.com"}) {
		t.Errorf("Resolve(abc) = %#v, want redirect", got)
	}

	n, ok := resolver.Resolve(context.Background(), "xyz").(NoSuchKey)
	if !ok {
		t.Fatal("Resolve(xyz) should be NoSuchKey")
	}
	if !errx.Is(n.Err, errx.NotFound) {
		t.Errorf("NoSuchKey.Err kind = %v, want NotFound", errx.KindOf(n.Err))
	}
}
