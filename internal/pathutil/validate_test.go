package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveWithin(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "exp1", "a"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative dir", "exp1/a", filepath.Join(root, "exp1", "a"), false},
		{"not yet created", "exp2/b/params.yaml", filepath.Join(root, "exp2", "b", "params.yaml"), false},
		{"absolute inside", filepath.Join(root, "exp1"), filepath.Join(root, "exp1"), false},
		{"root itself", ".", root, false},
		{"traversal", "../outside", "", true},
		{"hidden traversal", "exp1/../../outside", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"empty", "", "", true},
		{"null byte", "exp1/a\x00b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(root, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveWithin(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ResolveWithin(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveWithin_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := ResolveWithin(root, "escape/trial_0_sender2.arrow"); err == nil {
		t.Error("ResolveWithin() should reject a path through a symlink leaving the root")
	}
}

func TestResolveWithin_EmptyRoot(t *testing.T) {
	if _, err := ResolveWithin("", "exp1"); err == nil {
		t.Error("ResolveWithin() should reject an empty root")
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/home/user/results/exp1/params.yaml", ".../exp1/params.yaml"},
		{"params.yaml", "params.yaml"},
		{"/params.yaml", "params.yaml"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RedactPath(tt.input); got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
