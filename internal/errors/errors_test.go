package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *BaseError
		want string
	}{
		{"message only", New(CompileErrorCode, "boom"), "boom"},
		{"with location", New(SyntaxErrorCode, "bad directive").WithLocation(SourceLocation{File: "a.go", Line: 3}), "a.go:3: bad directive"},
		{"with column", New(SyntaxErrorCode, "bad").WithLocation(SourceLocation{File: "a.go", Line: 3, Column: 7}), "a.go:3:7: bad"},
		{"with cause", Wrap(ScanErrorCode, "scan failed", fs.ErrNotExist), "scan failed: file does not exist"},
		{"formatted", Wrapf(ConfigurationErrorCode, fs.ErrPermission, "load %s", "app.hcl"), "load app.hcl: permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSourceLocation_String(t *testing.T) {
	assert.Equal(t, "unknown location", SourceLocation{}.String())
	assert.Equal(t, "a.go", SourceLocation{File: "a.go"}.String())
	assert.True(t, SourceLocation{Line: 4}.IsEmpty())
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "CycleError", CycleErrorCode.String())
	assert.Equal(t, "BootstrapError", BootstrapErrorCode.String())
	assert.Equal(t, "UnknownError", ErrorCode(999).String())
}

func TestBaseError_ContextAndSuggestions(t *testing.T) {
	err := New(DependencyErrorCode, "missing")
	assert.Empty(t, err.Context())
	assert.Empty(t, err.Suggestions())

	err.WithContext("bean", "users").WithSuggestion("register the class in the catalog")
	assert.Equal(t, "users", err.Context()["bean"])
	assert.Equal(t, []string{"register the class in the catalog"}, err.Suggestions())
}

func TestDomainErrors(t *testing.T) {
	cause := fs.ErrNotExist

	scan := NewScanError("svc/svc.go", cause)
	assert.Equal(t, ScanErrorCode, scan.ErrorCode())
	assert.ErrorIs(t, scan, fs.ErrNotExist)
	assert.Equal(t, "svc/svc.go", scan.Context()["file"])

	compile := NewCompileErrorf("app.Repo", "empty class for %s", "repo").WithKind("bean").At("repo.go", 12)
	assert.Equal(t, "repo.go:12: empty class for repo", compile.Error())
	assert.Equal(t, "bean", compile.Kind)

	conflict := NewParserConflictError("bean", "a.Parser", "b.Parser")
	assert.Contains(t, conflict.Error(), "already handled by 'a.Parser'")
	assert.NotEmpty(t, conflict.Suggestions())

	cycle := NewCycleError([]string{"a", "b", "a"})
	assert.Equal(t, "dependency cycle detected: a -> b -> a", cycle.Error())

	dep := WrapDependencyError("users", "store", cause)
	assert.Equal(t, "store", dep.Context()["dependency"])
	assert.ErrorIs(t, dep, fs.ErrNotExist)

	boot := NewBootstrapError("bean", dep)
	assert.Equal(t, "bean", boot.Stage)
	assert.True(t, HasCode(boot, BootstrapErrorCode))
	assert.True(t, HasCode(boot, DependencyErrorCode))
	assert.False(t, HasCode(boot, CycleErrorCode))

	var ce *ContainerError
	require.True(t, stderrors.As(boot, &ce))
	assert.Equal(t, "users", ce.Bean)
}

func TestWrappers(t *testing.T) {
	err := WrapWithOperation("serve", ":8080", fs.ErrClosed)
	assert.Equal(t, "failed to serve :8080: file already closed", err.Error())

	fsErr := WrapFileSystemError("read", "beans.yaml", fs.ErrNotExist)
	assert.Equal(t, FileSystemErrorCode, fsErr.ErrorCode())
	assert.Equal(t, "beans.yaml", fsErr.Context()["path"])

	assert.Equal(t, "failed to stat file 'x': not a directory", FileSystemError("stat", "x", "not a directory").Error())
	assert.Equal(t, "configuration error in 'hcl': bad", ConfigurationError("hcl", "bad").Error())
	assert.True(t, HasCode(WrapConfigurationError("hcl", "load", fs.ErrNotExist), ConfigurationErrorCode))
	assert.False(t, HasCode(stderrors.New("plain"), UnknownErrorCode))
}
