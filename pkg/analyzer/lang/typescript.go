package lang

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/parser"
)

// jsBuiltins are globals and built-in callables excluded from call tracking.
var jsBuiltins = map[string]bool{
	"console": true, "require": true, "parseInt": true, "parseFloat": true,
	"String": true, "Number": true, "Boolean": true, "Array": true,
	"Object": true, "Promise": true, "Map": true, "Set": true,
	"JSON": true, "Math": true, "Date": true, "RegExp": true,
	"Error": true, "TypeError": true, "setTimeout": true,
	"setInterval": true, "clearTimeout": true, "clearInterval": true,
	"fetch": true, "encodeURIComponent": true, "decodeURIComponent": true,
	"isNaN": true, "Symbol": true, "Reflect": true, "Proxy": true,
	"log": true, "warn": true, "error": true, "push": true, "pop": true,
	"slice": true, "splice": true, "join": true, "split": true,
	"then": true, "catch": true, "finally": true, "stringify": true,
	"parse": true, "forEach": true, "filter": true, "reduce": true,
	"includes": true, "indexOf": true, "keys": true, "values": true,
	"entries": true, "assign": true, "freeze": true, "toString": true,
}

// TypeScriptAnalyzer extracts classes, interfaces, enums, type aliases,
// functions, and methods from TypeScript (and TSX) files. Calls on this
// resolve to the enclosing class.
type TypeScriptAnalyzer struct {
	lang parser.Language
}

// NewTypeScriptAnalyzer creates a TypeScript analyzer.
func NewTypeScriptAnalyzer() *TypeScriptAnalyzer {
	return &TypeScriptAnalyzer{lang: parser.LangTypeScript}
}

// Language returns the language tag.
func (a *TypeScriptAnalyzer) Language() parser.Language {
	return a.lang
}

// Analyze parses one TypeScript file and extracts its components and
// relationships.
func (a *TypeScriptAnalyzer) Analyze(filePath string, content []byte, repoRoot string) (*Result, error) {
	lang := parser.DetectLanguage(filePath)
	if lang != parser.LangTSX {
		lang = parser.LangTypeScript
	}
	return analyzeECMAScript(filePath, content, repoRoot, lang)
}

// JavaScriptAnalyzer extracts classes, functions, and methods from JavaScript
// files using the shared ECMAScript traversal.
type JavaScriptAnalyzer struct{}

// NewJavaScriptAnalyzer creates a JavaScript analyzer.
func NewJavaScriptAnalyzer() *JavaScriptAnalyzer {
	return &JavaScriptAnalyzer{}
}

// Language returns the language tag.
func (a *JavaScriptAnalyzer) Language() parser.Language {
	return parser.LangJavaScript
}

// Analyze parses one JavaScript file and extracts its components and
// relationships.
func (a *JavaScriptAnalyzer) Analyze(filePath string, content []byte, repoRoot string) (*Result, error) {
	return analyzeECMAScript(filePath, content, repoRoot, parser.LangJavaScript)
}

// analyzeECMAScript runs the shared TypeScript/JavaScript extraction.
func analyzeECMAScript(filePath string, content []byte, repoRoot string, lang parser.Language) (*Result, error) {
	p := parser.New()
	defer p.Close()

	parsed, err := p.Parse(content, lang, filePath)
	if err != nil {
		return nil, err
	}
	defer parsed.Tree.Close()

	ts := &tsFile{
		path:    filePath,
		relPath: RelativePath(filePath, repoRoot),
		module:  ModulePath(filePath, repoRoot),
		source:  content,
		lines:   splitLines(content),
		known:   make(map[string]*models.Component),
	}
	ts.run(parsed.Tree.RootNode())

	return &Result{Components: ts.components, Relationships: ts.rels}, nil
}

type tsFile struct {
	path    string
	relPath string
	module  string
	source  []byte
	lines   []string

	components []*models.Component
	rels       []models.CallRelationship
	known      map[string]*models.Component
}

func (ts *tsFile) run(root *sitter.Node) {
	ts.collectComponents(root, "")
	ts.walkCalls(root, "", "")
}

func (ts *tsFile) text(n *sitter.Node) string {
	return parser.GetNodeText(n, ts.source)
}

func (ts *tsFile) collectComponents(node *sitter.Node, class string) {
	for _, child := range parser.NamedChildren(node) {
		target := child
		if child.Type() == "export_statement" {
			if d := child.ChildByFieldName("declaration"); d != nil {
				target = d
			}
		}

		switch target.Type() {
		case "class_declaration":
			name := ts.text(target.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			ts.addComponent(target, name, models.TypeClass, "")
			ts.classHeritage(target, name)
			if body := target.ChildByFieldName("body"); body != nil {
				ts.collectComponents(body, name)
			}
		case "interface_declaration":
			if name := ts.text(target.ChildByFieldName("name")); name != "" {
				ts.addComponent(target, name, models.TypeInterface, "")
			}
		case "enum_declaration":
			if name := ts.text(target.ChildByFieldName("name")); name != "" {
				ts.addComponent(target, name, models.TypeEnum, "")
			}
		case "type_alias_declaration":
			if name := ts.text(target.ChildByFieldName("name")); name != "" {
				ts.addComponent(target, name, models.TypeTypeAlias, "")
			}
		case "function_declaration", "generator_function_declaration":
			name := ts.text(target.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			c := ts.addComponent(target, name, models.TypeFunction, "")
			c.Parameters = ts.extractParameters(target)
		case "method_definition":
			name := ts.text(target.ChildByFieldName("name"))
			if name == "" || class == "" {
				continue
			}
			c := ts.addComponent(target, name, models.TypeMethod, class)
			c.Parameters = ts.extractParameters(target)
		case "lexical_declaration", "variable_declaration":
			ts.collectArrowFunctions(target)
		default:
			ts.collectComponents(target, class)
		}
	}
}

// collectArrowFunctions captures const f = () => {} and const f = function() {}
// declarations as function components.
func (ts *tsFile) collectArrowFunctions(decl *sitter.Node) {
	for _, d := range parser.NamedChildren(decl) {
		if d.Type() != "variable_declarator" {
			continue
		}
		name := ts.text(d.ChildByFieldName("name"))
		value := d.ChildByFieldName("value")
		if name == "" || value == nil {
			continue
		}
		if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
			continue
		}
		c := ts.addComponent(d, name, models.TypeFunction, "")
		c.Parameters = ts.extractParameters(value)
	}
}

func (ts *tsFile) addComponent(n *sitter.Node, name string, ctype models.ComponentType, class string) *models.Component {
	start, end := lineOf(n), int(n.EndPoint().Row)+1
	doc := precedingDocComment(ts.lines, start, "//")

	display := name
	if class != "" {
		display = class + "." + name
	}

	c := models.NewComponent(ComponentID(ts.module, class, name), name, ctype)
	c.DisplayName = string(ctype) + " " + display
	c.NodeType = string(ctype)
	c.FilePath = ts.path
	c.RelativePath = ts.relPath
	c.ModulePath = c.ID
	c.StartLine = start
	c.EndLine = end
	c.SourceCode = sourceSpan(ts.lines, start, end)
	c.HasDocstring = doc != ""
	c.Docstring = doc
	c.ClassName = class

	ts.components = append(ts.components, c)
	ts.known[name] = c
	if class != "" {
		ts.known[class+"."+name] = c
	}
	return c
}

func (ts *tsFile) extractParameters(fn *sitter.Node) []models.Parameter {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []models.Parameter
	for _, p := range parser.NamedChildren(params) {
		switch p.Type() {
		case "identifier":
			out = append(out, models.Parameter{Name: ts.text(p)})
		case "required_parameter", "optional_parameter":
			name, ptype := "", ""
			if n := p.ChildByFieldName("pattern"); n != nil {
				name = ts.text(n)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				ptype = ts.text(t)
			}
			if name != "" {
				out = append(out, models.Parameter{Name: name, Type: ptype})
			}
		}
	}
	return out
}

// classHeritage records extends/implements edges.
func (ts *tsFile) classHeritage(class *sitter.Node, name string) {
	for _, child := range parser.NamedChildren(class) {
		if child.Type() != "class_heritage" {
			continue
		}
		parser.Walk(child, ts.source, func(n *sitter.Node, _ []byte) bool {
			if n.Type() != "identifier" && n.Type() != "type_identifier" {
				return true
			}
			base := ts.text(n)
			if base == "" || jsBuiltins[base] {
				return true
			}
			rel := models.RelInherits
			if p := n.Parent(); p != nil && p.Type() == "implements_clause" {
				rel = models.RelImplements
			}
			callee := base
			resolved := false
			if c, ok := ts.known[base]; ok {
				callee = c.ID
				resolved = true
			}
			ts.rels = append(ts.rels, models.CallRelationship{
				Caller:     ComponentID(ts.module, "", name),
				Callee:     callee,
				CallLine:   lineOf(n),
				IsResolved: resolved,
				Type:       rel,
			})
			return true
		})
	}
}

func (ts *tsFile) walkCalls(node *sitter.Node, callerID, class string) {
	for _, child := range parser.NamedChildren(node) {
		target := child
		if child.Type() == "export_statement" {
			if d := child.ChildByFieldName("declaration"); d != nil {
				target = d
			}
		}

		switch target.Type() {
		case "class_declaration":
			name := ts.text(target.ChildByFieldName("name"))
			if body := target.ChildByFieldName("body"); body != nil && name != "" {
				ts.walkCalls(body, callerID, name)
			}
		case "function_declaration", "generator_function_declaration":
			name := ts.text(target.ChildByFieldName("name"))
			if body := target.ChildByFieldName("body"); body != nil && name != "" {
				ts.walkCalls(body, ComponentID(ts.module, "", name), class)
			}
		case "method_definition":
			name := ts.text(target.ChildByFieldName("name"))
			if body := target.ChildByFieldName("body"); body != nil && name != "" && class != "" {
				ts.walkCalls(body, ComponentID(ts.module, class, name), class)
			}
		case "lexical_declaration", "variable_declaration":
			for _, d := range parser.NamedChildren(target) {
				if d.Type() != "variable_declarator" {
					continue
				}
				name := ts.text(d.ChildByFieldName("name"))
				value := d.ChildByFieldName("value")
				if value == nil {
					continue
				}
				if name != "" && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
					ts.walkCalls(value, ComponentID(ts.module, "", name), class)
				} else {
					ts.walkCalls(value, callerID, class)
				}
			}
		case "call_expression", "new_expression":
			if callerID != "" {
				ts.recordCall(target, callerID, class)
			}
			ts.walkCalls(target, callerID, class)
		default:
			ts.walkCalls(target, callerID, class)
		}
	}
}

func (ts *tsFile) recordCall(call *sitter.Node, callerID, class string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.ChildByFieldName("constructor")
	}
	if fn == nil {
		return
	}

	var callee string
	resolved := false
	rel := models.RelCalls

	switch fn.Type() {
	case "identifier":
		name := ts.text(fn)
		if jsBuiltins[name] {
			return
		}
		callee = name
		if c, ok := ts.known[name]; ok {
			callee = c.ID
			resolved = true
		}
	case "member_expression":
		method := ts.text(fn.ChildByFieldName("property"))
		if method == "" || jsBuiltins[method] {
			return
		}
		obj := fn.ChildByFieldName("object")
		if obj != nil && obj.Type() == "this" && class != "" {
			if c, ok := ts.known[class+"."+method]; ok {
				callee = c.ID
				resolved = true
			} else {
				callee = class + "." + method
			}
		} else {
			if obj != nil && obj.Type() == "identifier" && jsBuiltins[ts.text(obj)] {
				return
			}
			callee = ts.text(fn)
		}
	default:
		return
	}

	if callee == "" {
		return
	}
	ts.rels = append(ts.rels, models.CallRelationship{
		Caller:     callerID,
		Callee:     callee,
		CallLine:   lineOf(call),
		IsResolved: resolved,
		Type:       rel,
	})
}
