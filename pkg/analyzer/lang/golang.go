package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/parser"
)

// goPrimitives are Go primitive and common built-in types excluded from
// dependency edges.
var goPrimitives = map[string]bool{
	"bool": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "float32": true, "float64": true,
	"complex64": true, "complex128": true,
	"string": true, "error": true, "any": true,
	"context": true, "time": true, "duration": true,
}

// goBuiltins are built-in functions excluded from call tracking.
var goBuiltins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "new": true, "panic": true,
	"print": true, "println": true, "real": true, "recover": true,
	"min": true, "max": true,
}

// GoAnalyzer extracts functions, methods, structs, and interfaces from Go
// files, with two-pass type-directed resolution of method calls: a type
// context pass records struct fields and signature types, then each body is
// walked with a local scope so selector chains like a.b.Method() resolve to
// the concrete receiver type.
type GoAnalyzer struct{}

// NewGoAnalyzer creates a Go analyzer.
func NewGoAnalyzer() *GoAnalyzer {
	return &GoAnalyzer{}
}

// Language returns the language tag.
func (a *GoAnalyzer) Language() parser.Language {
	return parser.LangGo
}

// Analyze parses one Go file and extracts its components and relationships.
func (a *GoAnalyzer) Analyze(filePath string, content []byte, repoRoot string) (*Result, error) {
	p := parser.New()
	defer p.Close()

	parsed, err := p.Parse(content, parser.LangGo, filePath)
	if err != nil {
		return nil, err
	}
	defer parsed.Tree.Close()

	g := &goFile{
		path:       filePath,
		relPath:    RelativePath(filePath, repoRoot),
		module:     ModulePath(filePath, repoRoot),
		source:     content,
		lines:      splitLines(content),
		imports:    make(map[string]string),
		fields:     make(map[string]map[string]string),
		returns:    make(map[string]string),
		known:      make(map[string]*models.Component),
		components: make([]*models.Component, 0),
	}
	g.run(parsed.Tree.RootNode())

	return &Result{Components: g.components, Relationships: g.rels}, nil
}

// goFile holds per-file analysis state.
type goFile struct {
	path    string
	relPath string
	module  string
	source  []byte
	lines   []string

	imports map[string]string            // alias -> import path
	fields  map[string]map[string]string // struct -> field -> declared type
	returns map[string]string            // "Func" or "Type.Method" -> first result type

	components []*models.Component
	rels       []models.CallRelationship
	known      map[string]*models.Component // "Name" and "Owner.Name" -> component
}

func (g *goFile) run(root *sitter.Node) {
	g.collectImports(root)
	g.collectTypeContext(root)
	g.collectComponents(root)
	g.collectRelationships(root)
}

func (g *goFile) text(n *sitter.Node) string {
	return parser.GetNodeText(n, g.source)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// collectImports records import aliases so pkg.Func() calls can be qualified.
func (g *goFile) collectImports(root *sitter.Node) {
	for _, spec := range parser.FindNodesByType(root, g.source, "import_spec") {
		var alias, path string
		for _, child := range parser.NamedChildren(spec) {
			switch child.Type() {
			case "package_identifier":
				alias = g.text(child)
			case "interpreted_string_literal":
				path = strings.Trim(g.text(child), `"`)
			}
		}
		if path == "" {
			continue
		}
		if alias == "" {
			parts := strings.Split(path, "/")
			alias = parts[len(parts)-1]
		}
		g.imports[alias] = path
	}
}

// collectTypeContext is the first resolution pass: per struct type its field
// name to declared type map, and per function/method its first result type
// (used by the constructor-return inference in body scopes).
func (g *goFile) collectTypeContext(root *sitter.Node) {
	for _, spec := range parser.FindNodesByType(root, g.source, "type_spec") {
		name := g.text(spec.ChildByFieldName("name"))
		typ := spec.ChildByFieldName("type")
		if name == "" || typ == nil || typ.Type() != "struct_type" {
			continue
		}
		fieldMap := make(map[string]string)
		for _, field := range parser.FindNodesByType(typ, g.source, "field_declaration") {
			ftype := normalizeGoType(g.text(field.ChildByFieldName("type")))
			if ftype == "" {
				continue
			}
			for _, c := range parser.NamedChildren(field) {
				if c.Type() == "field_identifier" {
					fieldMap[g.text(c)] = ftype
				}
			}
		}
		g.fields[name] = fieldMap
	}

	for _, fn := range parser.FindNodesByType(root, g.source, "function_declaration") {
		name := g.text(fn.ChildByFieldName("name"))
		if ret := g.firstResultType(fn); name != "" && ret != "" {
			g.returns[name] = ret
		}
	}
	for _, m := range parser.FindNodesByType(root, g.source, "method_declaration") {
		name := g.text(m.ChildByFieldName("name"))
		recv, _ := g.receiverInfo(m)
		if ret := g.firstResultType(m); name != "" && recv != "" && ret != "" {
			g.returns[recv+"."+name] = ret
		}
	}
}

// firstResultType returns the normalized first result type of a signature.
func (g *goFile) firstResultType(fn *sitter.Node) string {
	result := fn.ChildByFieldName("result")
	if result == nil {
		return ""
	}
	if result.Type() == "parameter_list" {
		for _, c := range parser.NamedChildren(result) {
			if c.Type() == "parameter_declaration" {
				if t := c.ChildByFieldName("type"); t != nil {
					return normalizeGoType(g.text(t))
				}
			}
		}
		return ""
	}
	return normalizeGoType(g.text(result))
}

// receiverInfo extracts the receiver type and variable name of a method.
func (g *goFile) receiverInfo(m *sitter.Node) (recvType, recvVar string) {
	recv := m.ChildByFieldName("receiver")
	if recv == nil {
		return "", ""
	}
	for _, decl := range parser.NamedChildren(recv) {
		if decl.Type() != "parameter_declaration" {
			continue
		}
		if t := decl.ChildByFieldName("type"); t != nil {
			recvType = normalizeGoType(g.text(t))
		}
		for _, c := range parser.NamedChildren(decl) {
			if c.Type() == "identifier" {
				recvVar = g.text(c)
			}
		}
		return recvType, recvVar
	}
	return "", ""
}

// collectComponents extracts function, method, struct, and interface
// components.
func (g *goFile) collectComponents(root *sitter.Node) {
	parser.Walk(root, g.source, func(n *sitter.Node, _ []byte) bool {
		switch n.Type() {
		case "function_declaration":
			g.addFunction(n, "")
			return false
		case "method_declaration":
			recv, _ := g.receiverInfo(n)
			g.addFunction(n, recv)
			return false
		case "type_declaration":
			for _, spec := range parser.NamedChildren(n) {
				if spec.Type() == "type_spec" {
					g.addType(n, spec)
				}
			}
			return false
		}
		return true
	})
}

func (g *goFile) addFunction(n *sitter.Node, recvType string) {
	name := g.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}

	ctype := models.TypeFunction
	display := name
	if recvType != "" {
		ctype = models.TypeMethod
		display = recvType + "." + name
	}

	start, end := lineOf(n), int(n.EndPoint().Row)+1
	doc := precedingDocComment(g.lines, start, "//")

	c := models.NewComponent(ComponentID(g.module, recvType, name), name, ctype)
	c.DisplayName = string(ctype) + " " + display
	c.NodeType = string(ctype)
	c.FilePath = g.path
	c.RelativePath = g.relPath
	c.ModulePath = c.ID
	c.StartLine = start
	c.EndLine = end
	c.SourceCode = sourceSpan(g.lines, start, end)
	c.HasDocstring = doc != ""
	c.Docstring = doc
	c.ClassName = recvType
	c.Parameters = g.extractParameters(n)

	g.components = append(g.components, c)
	g.known[name] = c
	if recvType != "" {
		g.known[recvType+"."+name] = c
	}
}

func (g *goFile) addType(decl, spec *sitter.Node) {
	name := g.text(spec.ChildByFieldName("name"))
	typ := spec.ChildByFieldName("type")
	if name == "" || typ == nil {
		return
	}

	var ctype models.ComponentType
	switch typ.Type() {
	case "struct_type":
		ctype = models.TypeStruct
	case "interface_type":
		ctype = models.TypeInterface
	default:
		return
	}

	start, end := lineOf(decl), int(decl.EndPoint().Row)+1
	doc := precedingDocComment(g.lines, start, "//")

	c := models.NewComponent(ComponentID(g.module, "", name), name, ctype)
	c.DisplayName = string(ctype) + " " + name
	c.NodeType = string(ctype)
	c.FilePath = g.path
	c.RelativePath = g.relPath
	c.ModulePath = c.ID
	c.StartLine = start
	c.EndLine = end
	c.SourceCode = sourceSpan(g.lines, start, end)
	c.HasDocstring = doc != ""
	c.Docstring = doc

	g.components = append(g.components, c)
	g.known[name] = c
}

// extractParameters reads the main parameter list, skipping the receiver on
// methods.
func (g *goFile) extractParameters(fn *sitter.Node) []models.Parameter {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []models.Parameter
	for _, decl := range parser.NamedChildren(params) {
		if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
			continue
		}
		ptype := ""
		if t := decl.ChildByFieldName("type"); t != nil {
			ptype = g.text(t)
		}
		named := false
		for _, c := range parser.NamedChildren(decl) {
			if c.Type() == "identifier" {
				out = append(out, models.Parameter{Name: g.text(c), Type: ptype})
				named = true
			}
		}
		if !named && ptype != "" {
			out = append(out, models.Parameter{Name: "", Type: ptype})
		}
	}
	return out
}

// collectRelationships is the second resolution pass: per-body scope walks
// that resolve call expressions, plus struct/interface embedding edges.
func (g *goFile) collectRelationships(root *sitter.Node) {
	parser.Walk(root, g.source, func(n *sitter.Node, _ []byte) bool {
		switch n.Type() {
		case "function_declaration":
			name := g.text(n.ChildByFieldName("name"))
			if name != "" {
				g.walkBody(n, ComponentID(g.module, "", name), "", "")
			}
			return false
		case "method_declaration":
			name := g.text(n.ChildByFieldName("name"))
			recvType, recvVar := g.receiverInfo(n)
			if name != "" {
				g.walkBody(n, ComponentID(g.module, recvType, name), recvType, recvVar)
			}
			return false
		case "struct_type":
			g.structEmbedding(n)
		case "interface_type":
			g.interfaceEmbedding(n)
		}
		return true
	})
}

// walkBody seeds a scope with the receiver and parameter types, then walks
// the body in source order, extending the scope from := assignments and
// recording call edges.
func (g *goFile) walkBody(fn *sitter.Node, callerID, recvType, recvVar string) {
	scope := make(map[string]string)
	if recvVar != "" && recvType != "" {
		scope[recvVar] = recvType
	}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		for _, decl := range parser.NamedChildren(params) {
			ptype := ""
			if t := decl.ChildByFieldName("type"); t != nil {
				ptype = normalizeGoType(g.text(t))
			}
			if ptype == "" {
				continue
			}
			for _, c := range parser.NamedChildren(decl) {
				if c.Type() == "identifier" {
					scope[g.text(c)] = ptype
				}
			}
		}
	}

	body := fn.ChildByFieldName("body")
	if body == nil {
		return
	}

	parser.Walk(body, g.source, func(n *sitter.Node, _ []byte) bool {
		switch n.Type() {
		case "short_var_declaration":
			g.recordAssignment(n, scope)
		case "var_declaration":
			g.recordVarDecl(n, scope)
		case "call_expression":
			g.recordCall(n, callerID, scope)
		}
		return true
	})
}

// recordAssignment infers types for x := expr bindings.
func (g *goFile) recordAssignment(n *sitter.Node, scope map[string]string) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	names := parser.NamedChildren(left)
	values := parser.NamedChildren(right)
	for i, name := range names {
		if name.Type() != "identifier" {
			continue
		}
		var t string
		if len(values) == len(names) {
			t = g.exprType(values[i], scope)
		} else if len(values) == 1 {
			t = g.exprType(values[0], scope)
		}
		if t != "" {
			scope[g.text(name)] = t
		}
	}
}

// recordVarDecl handles var x Type and var x = expr.
func (g *goFile) recordVarDecl(n *sitter.Node, scope map[string]string) {
	for _, spec := range parser.FindNodesByType(n, g.source, "var_spec") {
		t := ""
		if typ := spec.ChildByFieldName("type"); typ != nil {
			t = normalizeGoType(g.text(typ))
		} else if val := spec.ChildByFieldName("value"); val != nil {
			for _, v := range parser.NamedChildren(val) {
				t = g.exprType(v, scope)
				break
			}
		}
		if t == "" {
			continue
		}
		for _, c := range parser.NamedChildren(spec) {
			if c.Type() == "identifier" {
				scope[g.text(c)] = t
			}
		}
	}
}

// exprType infers the static type of an expression from the local scope, the
// struct-field map, composite literals, constructor naming, and type
// assertions. Returns "" when the chain cannot be resolved.
func (g *goFile) exprType(n *sitter.Node, scope map[string]string) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return scope[g.text(n)]
	case "unary_expression", "parenthesized_expression":
		for _, c := range parser.NamedChildren(n) {
			return g.exprType(c, scope)
		}
		return ""
	case "composite_literal":
		return normalizeGoType(g.text(n.ChildByFieldName("type")))
	case "type_assertion_expression":
		return normalizeGoType(g.text(n.ChildByFieldName("type")))
	case "selector_expression":
		base := g.exprType(n.ChildByFieldName("operand"), scope)
		if base == "" {
			return ""
		}
		field := g.text(n.ChildByFieldName("field"))
		return g.fields[base][field]
	case "call_expression":
		return g.callReturnType(n, scope)
	}
	return ""
}

// callReturnType infers the type produced by a call: a known signature's
// result type, or the NewFoo -> Foo constructor naming heuristic.
func (g *goFile) callReturnType(call *sitter.Node, scope map[string]string) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		name := g.text(fn)
		if t, ok := g.returns[name]; ok {
			return t
		}
		return constructorType(name)
	case "selector_expression":
		method := g.text(fn.ChildByFieldName("field"))
		operand := fn.ChildByFieldName("operand")
		if operand != nil && operand.Type() == "identifier" {
			if _, imported := g.imports[g.text(operand)]; imported {
				// pkg.NewFoo() style constructor.
				return constructorType(method)
			}
		}
		if recv := g.exprType(operand, scope); recv != "" {
			if t, ok := g.returns[recv+"."+method]; ok {
				return t
			}
		}
		return constructorType(method)
	}
	return ""
}

// constructorType applies the NewFoo -> Foo naming heuristic.
func constructorType(name string) string {
	for _, prefix := range []string{"New", "new"} {
		if rest := strings.TrimPrefix(name, prefix); rest != name && rest != "" {
			return rest
		}
	}
	return ""
}

// recordCall resolves one call expression to a callee, preferring a concrete
// {ReceiverType}.{Method} match from the type-directed scope.
func (g *goFile) recordCall(call *sitter.Node, callerID string, scope map[string]string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	resolved := false

	switch fn.Type() {
	case "identifier":
		name := g.text(fn)
		if goBuiltins[name] {
			return
		}
		callee = name
		if c, ok := g.known[name]; ok {
			callee = c.ID
			resolved = true
		}
	case "selector_expression":
		method := g.text(fn.ChildByFieldName("field"))
		if method == "" || goBuiltins[method] {
			return
		}
		operand := fn.ChildByFieldName("operand")

		if operand != nil && operand.Type() == "identifier" {
			if _, imported := g.imports[g.text(operand)]; imported {
				// Package-qualified call; left for the global pass.
				callee = g.text(operand) + "." + method
				break
			}
		}

		if recv := g.exprType(operand, scope); recv != "" {
			if c, ok := g.known[recv+"."+method]; ok {
				callee = c.ID
				resolved = true
			} else {
				callee = recv + "." + method
			}
		} else {
			// Unresolvable chain falls back to the raw dotted name.
			callee = g.text(fn)
		}
	default:
		return
	}

	if callee == "" {
		return
	}
	g.rels = append(g.rels, models.CallRelationship{
		Caller:     callerID,
		Callee:     callee,
		CallLine:   lineOf(call),
		IsResolved: resolved,
		Type:       models.RelCalls,
	})
}

// structEmbedding records edges for embedded struct fields (a field with a
// type but no name).
func (g *goFile) structEmbedding(structType *sitter.Node) {
	owner := containingTypeName(structType, g.source)
	if owner == "" {
		return
	}
	for _, field := range parser.FindNodesByType(structType, g.source, "field_declaration") {
		hasName := false
		var embedded string
		for _, c := range parser.NamedChildren(field) {
			switch c.Type() {
			case "field_identifier":
				hasName = true
			case "type_identifier", "qualified_type":
				embedded = normalizeGoType(g.text(c))
			}
		}
		if hasName || embedded == "" || isGoPrimitive(embedded) {
			continue
		}
		g.addTypeEdge(owner, embedded, lineOf(field), models.RelEmbeds)
	}
}

// interfaceEmbedding records edges for embedded interfaces.
func (g *goFile) interfaceEmbedding(ifaceType *sitter.Node) {
	owner := containingTypeName(ifaceType, g.source)
	if owner == "" {
		return
	}
	for _, c := range parser.NamedChildren(ifaceType) {
		if c.Type() != "type_identifier" && c.Type() != "qualified_type" {
			continue
		}
		embedded := normalizeGoType(g.text(c))
		if embedded == "" || isGoPrimitive(embedded) {
			continue
		}
		g.addTypeEdge(owner, embedded, lineOf(c), models.RelEmbeds)
	}
}

func (g *goFile) addTypeEdge(owner, target string, line int, rel models.RelationshipType) {
	callee := target
	resolved := false
	if c, ok := g.known[target]; ok {
		callee = c.ID
		resolved = true
	}
	g.rels = append(g.rels, models.CallRelationship{
		Caller:     ComponentID(g.module, "", owner),
		Callee:     callee,
		CallLine:   line,
		IsResolved: resolved,
		Type:       rel,
	})
}

// containingTypeName walks up to the enclosing type_spec and returns its name.
func containingTypeName(n *sitter.Node, source []byte) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "type_spec" {
			return parser.GetNodeText(cur.ChildByFieldName("name"), source)
		}
	}
	return ""
}

// normalizeGoType strips pointer, slice, map, channel, variadic, generic, and
// package-qualifier syntax so a declared type matches the bare type names used
// as component owners.
func normalizeGoType(t string) string {
	t = strings.TrimSpace(t)
	for {
		switch {
		case strings.HasPrefix(t, "*"):
			t = t[1:]
		case strings.HasPrefix(t, "[]"):
			t = t[2:]
		case strings.HasPrefix(t, "..."):
			t = t[3:]
		case strings.HasPrefix(t, "chan "):
			t = t[5:]
		case strings.HasPrefix(t, "map["):
			// Use the value type: map[K]V -> V.
			if i := strings.Index(t, "]"); i >= 0 {
				t = t[i+1:]
			} else {
				return ""
			}
		default:
			goto done
		}
	}
done:
	// Drop generic type arguments: Foo[T] -> Foo.
	if i := strings.Index(t, "["); i >= 0 {
		t = t[:i]
	}
	// Drop package qualifiers: pkg.Type -> Type.
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}

// isGoPrimitive reports whether a type name is a primitive or common built-in.
func isGoPrimitive(name string) bool {
	if name == "" {
		return true
	}
	return goPrimitives[strings.ToLower(normalizeGoType(name))]
}
