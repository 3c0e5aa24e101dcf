// Package render prints proxy declarations as Go source with jennifer.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"

	"proxygen/internal/decl"
	"proxygen/internal/naming"
)

const headerComment = "Code generated by proxygen. DO NOT EDIT."

const runtimeAlias = "rt"

type Options struct {
	// Import path prefix of the generated packages.
	ModulePath string
	// Import path of the runtime support package.
	RuntimeImport string
	// Put every namespace into the single package at ModulePath. Identifiers are prefixed
	// with their namespace instead.
	Flat bool
}

type Printer struct {
	options Options
}

func NewPrinter(options Options) *Printer {
	return &Printer{options: options}
}

func (p *Printer) PackagePath(namespace string) string {
	if p.options.Flat {
		return p.options.ModulePath
	}
	return naming.PackagePath(p.options.ModulePath, namespace)
}

func (p *Printer) PackageName(namespace string) string {
	return naming.PackageName(path.Base(p.PackagePath(namespace)))
}

// The package-level identifier of a top-level proxy.
func (p *Printer) Ident(namespace string, name string) string {
	if !p.options.Flat || namespace == "" {
		return name
	}
	segments := strings.Split(namespace, ".")
	for i, segment := range segments {
		segments[i] = naming.Export(segment)
	}
	return strings.Join(segments, "_") + "_" + name
}

// The file a top-level proxy is written to, below outputDir.
func (p *Printer) FilePath(outputDir string, declaration *decl.Type) string {
	dir := outputDir
	if !p.options.Flat {
		rel := strings.TrimPrefix(p.PackagePath(declaration.Namespace), p.options.ModulePath)
		dir = filepath.Join(outputDir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	}
	return filepath.Join(dir, fmt.Sprintf("%s.go", strings.ToLower(p.Ident(declaration.Namespace, declaration.Name))))
}

// Builds the jennifer file holding a top-level proxy and everything nested in it.
func (p *Printer) File(declaration *decl.Type) *jen.File {
	file := jen.NewFilePathName(p.PackagePath(declaration.Namespace), p.PackageName(declaration.Namespace))
	file.HeaderComment(headerComment)
	file.ImportAlias(p.options.RuntimeImport, runtimeAlias)

	tp := &typePrinter{
		printer:   p,
		file:      file,
		namespace: declaration.Namespace,
	}
	tp.declaration(declaration, p.Ident(declaration.Namespace, declaration.Name))
	return file
}

func (p *Printer) Render(declaration *decl.Type) (string, error) {
	buf := &bytes.Buffer{}
	if err := p.File(declaration).Render(buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *Printer) Save(declaration *decl.Type, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return err
	}
	return p.File(declaration).Save(target)
}

// Prints the declarations of one file.
type typePrinter struct {
	printer   *Printer
	file      *jen.File
	namespace string
}

func (tp *typePrinter) rt(name string) *jen.Statement {
	return jen.Qual(tp.printer.options.RuntimeImport, name)
}

// A type expression as seen from the file's package.
func (tp *typePrinter) typeCode(t decl.TypeExpr) *jen.Statement {
	if t.IsBuiltin() {
		return jen.Id(t.Builtin)
	}
	ident := tp.printer.Ident(t.Namespace, t.Name)
	if tp.printer.PackagePath(t.Namespace) == tp.printer.PackagePath(tp.namespace) {
		return jen.Id(ident)
	}
	return jen.Qual(tp.printer.PackagePath(t.Namespace), ident)
}

func (tp *typePrinter) paramCode(param decl.Param) *jen.Statement {
	code := jen.Id(param.Name)
	if param.Mode != decl.PassValue {
		code.Op("*")
	}
	return code.Add(tp.typeCode(param.Type))
}

func (tp *typePrinter) declaration(declaration *decl.Type, ident string) {
	switch declaration.Shape {
	case decl.ShapeInterface:
		tp.interfaceType(declaration, ident)
	case decl.ShapeRecord:
		tp.recordType(declaration, ident)
	case decl.ShapeEnum:
		tp.enumType(declaration, ident)
	}

	for _, nested := range declaration.Nested {
		tp.declaration(nested, ident+"_"+nested.Name)
	}
}

func (tp *typePrinter) docComment(declaration *decl.Type, ident string) {
	tp.file.Comment(fmt.Sprintf("%s is a proxy for %s.", ident, declaration.FullName))
	if declaration.Hides {
		tp.file.Comment("//proxygen:hides")
	}
}

func (tp *typePrinter) interfaceType(declaration *decl.Type, ident string) {
	tp.docComment(declaration, ident)
	tp.file.Type().Id(ident).InterfaceFunc(func(g *jen.Group) {
		for _, base := range declaration.Bases {
			g.Add(tp.typeCode(base))
		}
		for _, member := range declaration.Members {
			tp.interfaceMember(g, member)
		}
	}).Line()

	tp.typeHandle(declaration, ident)
	tp.staticMembers(declaration, ident)
}

func (tp *typePrinter) interfaceMember(g *jen.Group, member decl.Member) {
	switch m := member.(type) {
	case *decl.Method:
		if m.Static {
			return
		}
		methodDirectives(g, m)
		g.Id(m.Name).ParamsFunc(func(params *jen.Group) {
			for _, param := range m.Params {
				params.Add(tp.paramCode(param))
			}
		}).Add(tp.resultCode(m.Result))
	case *decl.Property:
		if m.Static {
			return
		}
		if m.Getter != nil {
			accessorDirectives(g, m, m.Getter)
			g.Id(m.Name).Params(tp.indexParams(m)...).Add(tp.typeCode(m.Type))
		}
		if m.Setter != nil {
			accessorDirectives(g, m, m.Setter)
			g.Id(setterName(m)).Params(tp.setterParams(m)...)
		}
	}
}

func (tp *typePrinter) resultCode(result *decl.TypeExpr) *jen.Statement {
	if result == nil {
		return jen.Null()
	}
	return tp.typeCode(*result)
}

func (tp *typePrinter) indexParams(property *decl.Property) []jen.Code {
	if !property.Indexer {
		return nil
	}
	return []jen.Code{jen.Id(decl.IndexParam).Add(tp.typeCode(property.IndexType))}
}

func (tp *typePrinter) setterParams(property *decl.Property) []jen.Code {
	return append(tp.indexParams(property), jen.Id(decl.ValueParam).Add(tp.typeCode(property.Type)))
}

func setterName(property *decl.Property) string {
	return "Set" + property.Name
}

func methodDirectives(g *jen.Group, method *decl.Method) {
	g.Comment(fmt.Sprintf("//proxygen:method %d", method.Index))
	if method.Shadow {
		g.Comment("//proxygen:shadow")
	}
	if method.Operator != "" {
		g.Comment("//proxygen:operator " + method.Operator)
	}
}

func accessorDirectives(g *jen.Group, property *decl.Property, accessor *decl.Accessor) {
	g.Comment(accessorDirective(accessor))
	if property.Shadow {
		g.Comment("//proxygen:shadow")
	}
}

// Binds the proxy's own runtime type and the cached member handles.
func (tp *typePrinter) typeHandle(declaration *decl.Type, ident string) {
	tp.file.Var().Id(ident+"Type").Op("=").Add(tp.rt("FindType")).Call(jen.Lit(declaration.FullName))

	if len(declaration.Handles) == 0 {
		tp.file.Line()
		return
	}

	tp.file.Var().DefsFunc(func(g *jen.Group) {
		for _, handle := range declaration.Handles {
			kind, lookup := "Method", "GetMethod"
			if handle.Kind == decl.HandleField {
				kind, lookup = "Field", "GetField"
			}
			g.Id(handleIdent(ident, handle.Name)).Op("=").Qual("sync", "OnceValue").Call(
				jen.Func().Params().Op("*").Add(tp.rt(kind)).Block(
					jen.Return(jen.Id(ident+"Type").Dot(lookup).Call(jen.Lit(handle.Lookup))),
				),
			)
		}
	}).Line()
}

func handleIdent(ident string, handle string) string {
	return "_" + ident + "_" + handle
}

// Static members become package-level functions.
func (tp *typePrinter) staticMembers(declaration *decl.Type, ident string) {
	for _, member := range declaration.Members {
		switch m := member.(type) {
		case *decl.Method:
			if !m.Static {
				continue
			}
			tp.file.Comment(fmt.Sprintf("//proxygen:method %d", m.Index))
			if m.Shadow {
				tp.file.Comment("//proxygen:shadow")
			}
			if m.Operator != "" {
				tp.file.Comment("//proxygen:operator " + m.Operator)
			}
			tp.file.Func().Id(ident+"_"+m.Name).ParamsFunc(func(params *jen.Group) {
				for _, param := range m.Params {
					params.Add(tp.paramCode(param))
				}
			}).Add(tp.resultCode(m.Result)).BlockFunc(func(g *jen.Group) {
				tp.body(g, ident, m.Body)
			}).Line()
		case *decl.Property:
			if !m.Static {
				continue
			}
			if m.Getter != nil {
				tp.file.Comment(accessorDirective(m.Getter))
				if m.Shadow {
					tp.file.Comment("//proxygen:shadow")
				}
				tp.file.Func().Id(ident+"_"+m.Name).Params(tp.indexParams(m)...).Add(tp.typeCode(m.Type)).BlockFunc(func(g *jen.Group) {
					tp.body(g, ident, m.Getter.Body)
				}).Line()
			}
			if m.Setter != nil {
				tp.file.Comment(accessorDirective(m.Setter))
				if m.Shadow {
					tp.file.Comment("//proxygen:shadow")
				}
				tp.file.Func().Id(ident+"_"+setterName(m)).Params(tp.setterParams(m)...).BlockFunc(func(g *jen.Group) {
					tp.body(g, ident, m.Setter.Body)
				}).Line()
			}
		}
	}
}

func accessorDirective(accessor *decl.Accessor) string {
	if accessor.Facade == decl.FacadeNone {
		return fmt.Sprintf("//proxygen:method %d", accessor.Index)
	}
	return fmt.Sprintf("//proxygen:field %d %s", accessor.Index, accessor.Facade)
}

func (tp *typePrinter) enumType(declaration *decl.Type, ident string) {
	tp.docComment(declaration, ident)
	tp.file.Type().Id(ident).Add(tp.typeCode(declaration.Enum.Underlying)).Line()

	if len(declaration.Enum.Values) == 0 {
		return
	}
	tp.file.Const().DefsFunc(func(g *jen.Group) {
		for _, value := range declaration.Enum.Values {
			g.Id(ident + "_" + value.Name).Id(ident).Op("=").Lit(int(value.Value))
		}
	}).Line()
}
