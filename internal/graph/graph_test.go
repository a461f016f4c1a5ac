package graph

import "testing"

func TestGraphPackageNotFound(t *testing.T) {
	g := New("user/proj")
	if _, err := g.Package("user/proj/missing"); err == nil {
		t.Fatal("expected an error for an unregistered package")
	}
}

func TestGraphModuleNotFound(t *testing.T) {
	g := New("user/proj")
	if _, err := g.Module("user/other"); err == nil {
		t.Fatal("expected an error for an unregistered module")
	}
}

func TestGraphPackagesInModule(t *testing.T) {
	g := New("user/proj")
	g.Packages["user/proj/a"] = &Package{ID: "user/proj/a", Module: "user/proj"}
	g.Packages["user/proj/b"] = &Package{ID: "user/proj/b", Module: "user/proj"}
	g.Packages["user/dep/c"] = &Package{ID: "user/dep/c", Module: "user/dep"}

	got := g.PackagesInModule("user/proj")
	if len(got) != 2 {
		t.Fatalf("PackagesInModule returned %d packages, want 2", len(got))
	}
}

func TestModuleNameValidate(t *testing.T) {
	cases := []struct {
		name    ModuleName
		wantErr bool
	}{
		{"user/proj", false},
		{"user", true},
		{"a/b/c", true},
		{"/proj", true},
		{"user/", true},
	}
	for _, c := range cases {
		err := c.name.Validate()
		if (err != nil) != c.wantErr {
			t.Errorf("Validate(%q) err = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestModuleNameLooseValidate(t *testing.T) {
	cases := []struct {
		name    ModuleName
		wantErr bool
	}{
		{"user/proj", false},
		{"singlesegment", false},
		{"a/b/c", false},
		{"", true},
		{"a/b/c/d", true},
		{"a//c", true},
	}
	for _, c := range cases {
		err := c.name.LooseValidate()
		if (err != nil) != c.wantErr {
			t.Errorf("LooseValidate(%q) err = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestModuleSourceRootDefault(t *testing.T) {
	m := &Module{RootDir: "/home/me/proj"}
	if got, want := m.SourceRoot(), "/home/me/proj"; got != want {
		t.Errorf("SourceRoot() = %q, want %q", got, want)
	}

	m.Source = "."
	if got, want := m.SourceRoot(), "/home/me/proj"; got != want {
		t.Errorf("SourceRoot() with Source=%q = %q, want %q", m.Source, got, want)
	}
}

func TestModuleSourceRootDeclared(t *testing.T) {
	m := &Module{RootDir: "/home/me/proj", Source: "src"}
	if got, want := m.SourceRoot(), "/home/me/proj/src"; got != want {
		t.Errorf("SourceRoot() = %q, want %q", got, want)
	}
}

func TestPackageHasTestKinds(t *testing.T) {
	p := &Package{Files: []SourceFile{
		{Name: "a.mbt", Kind: FileSource},
		{Name: "a_test.mbt", Kind: FileBlackboxTest},
	}}
	if !p.HasSource() {
		t.Error("HasSource() = false, want true")
	}
	if !p.HasBlackbox() {
		t.Error("HasBlackbox() = false, want true")
	}
	if p.HasWhitebox() {
		t.Error("HasWhitebox() = true, want false")
	}

	p2 := &Package{Files: []SourceFile{{Name: "a_wbtest.mbt", Kind: FileWhiteboxTest}}}
	if !p2.HasWhitebox() {
		t.Error("HasWhitebox() = false, want true")
	}
}

func TestImportsForBlackboxWithTestImportAll(t *testing.T) {
	p := &Package{
		ID:            "user/proj/a",
		Imports:       []Import{{Path: "user/proj/b", Alias: "b"}},
		TestImports:   []Import{{Path: "user/proj/c", Alias: "c"}},
		TestImportAll: true,
	}
	imps := p.ImportsFor(TargetBlackbox)
	if len(imps) != 3 {
		t.Fatalf("ImportsFor(TargetBlackbox) returned %d imports, want 3", len(imps))
	}
	if imps[1].Path != p.ID || imps[1].Alias != "a" {
		t.Errorf("self-import for TestImportAll = %+v, want Path=%q Alias=%q", imps[1], p.ID, "a")
	}
	if imps[2] != (Import{Path: "user/proj/c", Alias: "c"}) {
		t.Errorf("trailing test import = %+v, want the declared test-import entry", imps[2])
	}
}

func TestImportsForWhitebox(t *testing.T) {
	p := &Package{
		Imports:       []Import{{Path: "user/proj/b", Alias: "b"}},
		WbTestImports: []Import{{Path: "user/proj/d", Alias: "d"}},
	}
	imps := p.ImportsFor(TargetWhitebox)
	if len(imps) != 2 {
		t.Fatalf("ImportsFor(TargetWhitebox) returned %d imports, want 2", len(imps))
	}
}

func TestBuildTargetString(t *testing.T) {
	bt := BuildTarget{Package: "user/proj/a", Kind: TargetBlackbox}
	if got, want := bt.String(), "user/proj/a::blackbox_test"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
