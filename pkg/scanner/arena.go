package scanner

import (
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// typeNode is one type declaration found in scanned source
type typeNode struct {
	id          string
	pkg         string
	name        string
	file        string
	isInterface bool
	doc         []*ast.Comment
	fields      []*fieldNode
	embeds      []string
	methods     []*methodNode
}

type fieldNode struct {
	name   string
	typeID string
	doc    []*ast.Comment
}

type methodNode struct {
	name string
	file string
	doc  []*ast.Comment
}

type pendingMethod struct {
	recv   string
	method *methodNode
}

// arena indexes every type node seen during a scan so embedded (parent)
// types can be found by identifier regardless of which file declared them
type arena struct {
	fset    *token.FileSet
	nodes   []*typeNode
	index   map[string]int
	pending []pendingMethod
}

func newArena(fset *token.FileSet) *arena {
	return &arena{fset: fset, index: make(map[string]int)}
}

func (a *arena) node(id string) (*typeNode, bool) {
	i, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.nodes[i], true
}

// addFile indexes the type declarations and methods of one file and
// returns the nodes it declared, in source order
func (a *arena) addFile(pkg, filename string, file *ast.File) []*typeNode {
	imports := importNames(file)
	var declared []*typeNode

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				n := &typeNode{
					id:   pkg + "." + ts.Name.Name,
					pkg:  pkg,
					name: ts.Name.Name,
					file: filename,
					doc:  comments(doc),
				}
				switch t := ts.Type.(type) {
				case *ast.InterfaceType:
					n.isInterface = true
				case *ast.StructType:
					a.collectFields(n, t, imports)
				}
				a.put(n)
				declared = append(declared, n)
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) == 0 {
				continue
			}
			recv := receiverName(d.Recv.List[0].Type)
			if recv == "" {
				continue
			}
			a.pending = append(a.pending, pendingMethod{
				recv:   pkg + "." + recv,
				method: &methodNode{name: d.Name.Name, file: filename, doc: comments(d.Doc)},
			})
		}
	}
	return declared
}

func (a *arena) put(n *typeNode) {
	if i, ok := a.index[n.id]; ok {
		a.nodes[i] = n
		return
	}
	a.index[n.id] = len(a.nodes)
	a.nodes = append(a.nodes, n)
}

// link attaches collected methods to their receiver types
func (a *arena) link() {
	remaining := a.pending[:0]
	for _, p := range a.pending {
		if n, ok := a.node(p.recv); ok {
			n.methods = append(n.methods, p.method)
			continue
		}
		remaining = append(remaining, p)
	}
	a.pending = remaining
}

func (a *arena) collectFields(n *typeNode, st *ast.StructType, imports map[string]string) {
	for _, field := range st.Fields.List {
		typeID := typeIdentifier(field.Type, n.pkg, imports)
		if len(field.Names) == 0 {
			if typeID != "" {
				n.embeds = append(n.embeds, typeID)
			}
			continue
		}
		doc := append(append([]*ast.Comment{}, comments(field.Doc)...), comments(field.Comment)...)
		for _, name := range field.Names {
			n.fields = append(n.fields, &fieldNode{name: name.Name, typeID: typeID, doc: doc})
		}
	}
}

func (a *arena) line(c *ast.Comment) int {
	return a.fset.Position(c.Pos()).Line
}

func comments(cg *ast.CommentGroup) []*ast.Comment {
	if cg == nil {
		return nil
	}
	return cg.List
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// typeIdentifier returns "<import path>.<Name>" for named types and "" for
// predeclared, composite and unresolvable types
func typeIdentifier(expr ast.Expr, pkg string, imports map[string]string) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return typeIdentifier(t.X, pkg, imports)
	case *ast.IndexExpr:
		return typeIdentifier(t.X, pkg, imports)
	case *ast.IndexListExpr:
		return typeIdentifier(t.X, pkg, imports)
	case *ast.Ident:
		if types.Universe.Lookup(t.Name) != nil {
			return ""
		}
		return pkg + "." + t.Name
	case *ast.SelectorExpr:
		x, ok := t.X.(*ast.Ident)
		if !ok {
			return ""
		}
		importPath, ok := imports[x.Name]
		if !ok {
			return ""
		}
		return importPath + "." + t.Sel.Name
	}
	return ""
}

var versionSuffix = regexp.MustCompile(`^v[0-9]+$`)

// importNames maps the local name of every import to its path
func importNames(file *ast.File) map[string]string {
	out := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		if spec.Name != nil {
			if spec.Name.Name == "_" || spec.Name.Name == "." {
				continue
			}
			out[spec.Name.Name] = importPath
			continue
		}
		out[defaultImportName(importPath)] = importPath
	}
	return out
}

func defaultImportName(importPath string) string {
	name := path.Base(importPath)
	if versionSuffix.MatchString(name) {
		if parent := path.Base(path.Dir(importPath)); parent != "." && parent != "/" {
			name = parent
		}
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "-", "_")
}
