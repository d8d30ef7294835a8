package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/parser"
)

// pythonBuiltins are built-in callables excluded from call tracking.
var pythonBuiltins = map[string]bool{
	"print": true, "len": true, "range": true, "str": true, "int": true,
	"float": true, "bool": true, "list": true, "dict": true, "set": true,
	"tuple": true, "type": true, "isinstance": true, "issubclass": true,
	"super": true, "enumerate": true, "zip": true, "map": true,
	"filter": true, "sorted": true, "reversed": true, "open": true,
	"getattr": true, "setattr": true, "hasattr": true, "repr": true,
	"abs": true, "min": true, "max": true, "sum": true, "round": true,
	"any": true, "all": true, "iter": true, "next": true, "id": true,
	"hash": true, "format": true, "vars": true, "object": true,
	"Exception": true, "ValueError": true, "TypeError": true,
	"KeyError": true, "RuntimeError": true,
}

// PythonAnalyzer extracts classes, functions, and methods from Python files.
// Calls on self resolve to the enclosing class; bare ClassName() calls
// resolve to the class component.
type PythonAnalyzer struct{}

// NewPythonAnalyzer creates a Python analyzer.
func NewPythonAnalyzer() *PythonAnalyzer {
	return &PythonAnalyzer{}
}

// Language returns the language tag.
func (a *PythonAnalyzer) Language() parser.Language {
	return parser.LangPython
}

// Analyze parses one Python file and extracts its components and
// relationships.
func (a *PythonAnalyzer) Analyze(filePath string, content []byte, repoRoot string) (*Result, error) {
	p := parser.New()
	defer p.Close()

	parsed, err := p.Parse(content, parser.LangPython, filePath)
	if err != nil {
		return nil, err
	}
	defer parsed.Tree.Close()

	py := &pyFile{
		path:    filePath,
		relPath: RelativePath(filePath, repoRoot),
		module:  ModulePath(filePath, repoRoot),
		source:  content,
		lines:   splitLines(content),
		known:   make(map[string]*models.Component),
	}
	py.run(parsed.Tree.RootNode())

	return &Result{Components: py.components, Relationships: py.rels}, nil
}

type pyFile struct {
	path    string
	relPath string
	module  string
	source  []byte
	lines   []string

	components []*models.Component
	rels       []models.CallRelationship
	known      map[string]*models.Component
}

func (py *pyFile) run(root *sitter.Node) {
	py.collectComponents(root, "")
	py.collectRelationships(root)
}

func (py *pyFile) text(n *sitter.Node) string {
	return parser.GetNodeText(n, py.source)
}

// collectComponents walks definitions, tracking the enclosing class name for
// method qualification.
func (py *pyFile) collectComponents(node *sitter.Node, class string) {
	for _, child := range parser.NamedChildren(node) {
		target := child
		if child.Type() == "decorated_definition" {
			if d := child.ChildByFieldName("definition"); d != nil {
				target = d
			}
		}

		switch target.Type() {
		case "class_definition":
			name := py.text(target.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			py.addComponent(target, name, models.TypeClass, "")
			py.classInheritance(target, name)
			if body := target.ChildByFieldName("body"); body != nil {
				py.collectComponents(body, name)
			}
		case "function_definition":
			name := py.text(target.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			ctype := models.TypeFunction
			if class != "" {
				ctype = models.TypeMethod
			}
			c := py.addComponent(target, name, ctype, class)
			c.Parameters = py.extractParameters(target)
			if body := target.ChildByFieldName("body"); body != nil {
				py.collectComponents(body, class)
			}
		default:
			py.collectComponents(target, class)
		}
	}
}

func (py *pyFile) addComponent(n *sitter.Node, name string, ctype models.ComponentType, class string) *models.Component {
	start, end := lineOf(n), int(n.EndPoint().Row)+1
	doc := py.docstringOf(n)

	display := name
	if class != "" {
		display = class + "." + name
	}

	c := models.NewComponent(ComponentID(py.module, class, name), name, ctype)
	c.DisplayName = string(ctype) + " " + display
	c.NodeType = string(ctype)
	c.FilePath = py.path
	c.RelativePath = py.relPath
	c.ModulePath = c.ID
	c.StartLine = start
	c.EndLine = end
	c.SourceCode = sourceSpan(py.lines, start, end)
	c.HasDocstring = doc != ""
	c.Docstring = doc
	c.ClassName = class

	py.components = append(py.components, c)
	py.known[name] = c
	if class != "" {
		py.known[class+"."+name] = c
	}
	return c
}

// docstringOf returns the leading string expression of a definition body.
func (py *pyFile) docstringOf(def *sitter.Node) string {
	body := def.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	for _, stmt := range parser.NamedChildren(body) {
		if stmt.Type() != "expression_statement" {
			return ""
		}
		for _, expr := range parser.NamedChildren(stmt) {
			if expr.Type() == "string" {
				return strings.Trim(py.text(expr), "\"' \n")
			}
		}
		return ""
	}
	return ""
}

func (py *pyFile) extractParameters(def *sitter.Node) []models.Parameter {
	params := def.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []models.Parameter
	for _, p := range parser.NamedChildren(params) {
		switch p.Type() {
		case "identifier":
			out = append(out, models.Parameter{Name: py.text(p)})
		case "typed_parameter", "typed_default_parameter", "default_parameter":
			name, ptype := "", ""
			if n := p.ChildByFieldName("name"); n != nil {
				name = py.text(n)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				ptype = py.text(t)
			}
			if name == "" {
				for _, c := range parser.NamedChildren(p) {
					if c.Type() == "identifier" {
						name = py.text(c)
						break
					}
				}
			}
			if name != "" {
				out = append(out, models.Parameter{Name: name, Type: ptype})
			}
		}
	}
	return out
}

// classInheritance records inherits edges from the superclass list.
func (py *pyFile) classInheritance(class *sitter.Node, name string) {
	supers := class.ChildByFieldName("superclasses")
	if supers == nil {
		return
	}
	for _, s := range parser.NamedChildren(supers) {
		if s.Type() != "identifier" && s.Type() != "attribute" {
			continue
		}
		base := py.text(s)
		if base == "" || pythonBuiltins[base] {
			continue
		}
		py.rels = append(py.rels, models.CallRelationship{
			Caller:     ComponentID(py.module, "", name),
			Callee:     base,
			CallLine:   lineOf(s),
			IsResolved: false,
			Type:       models.RelInherits,
		})
	}
}

// collectRelationships walks each definition body for call expressions.
func (py *pyFile) collectRelationships(root *sitter.Node) {
	py.walkCalls(root, "", "")
}

func (py *pyFile) walkCalls(node *sitter.Node, callerID, class string) {
	for _, child := range parser.NamedChildren(node) {
		target := child
		if child.Type() == "decorated_definition" {
			if d := child.ChildByFieldName("definition"); d != nil {
				target = d
			}
		}

		switch target.Type() {
		case "class_definition":
			name := py.text(target.ChildByFieldName("name"))
			if body := target.ChildByFieldName("body"); body != nil && name != "" {
				py.walkCalls(body, callerID, name)
			}
		case "function_definition":
			name := py.text(target.ChildByFieldName("name"))
			if body := target.ChildByFieldName("body"); body != nil && name != "" {
				py.walkCalls(body, ComponentID(py.module, class, name), class)
			}
		case "call":
			if callerID != "" {
				py.recordCall(target, callerID, class)
			}
			py.walkCalls(target, callerID, class)
		default:
			py.walkCalls(target, callerID, class)
		}
	}
}

func (py *pyFile) recordCall(call *sitter.Node, callerID, class string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}

	var callee string
	resolved := false

	switch fn.Type() {
	case "identifier":
		name := py.text(fn)
		if pythonBuiltins[name] {
			return
		}
		callee = name
		if c, ok := py.known[name]; ok {
			callee = c.ID
			resolved = true
		}
	case "attribute":
		method := py.text(fn.ChildByFieldName("attribute"))
		if method == "" || pythonBuiltins[method] {
			return
		}
		obj := fn.ChildByFieldName("object")
		if obj != nil && obj.Type() == "identifier" && py.text(obj) == "self" && class != "" {
			if c, ok := py.known[class+"."+method]; ok {
				callee = c.ID
				resolved = true
			} else {
				callee = class + "." + method
			}
		} else {
			callee = py.text(fn)
		}
	default:
		return
	}

	if callee == "" {
		return
	}
	py.rels = append(py.rels, models.CallRelationship{
		Caller:     callerID,
		Callee:     callee,
		CallLine:   lineOf(call),
		IsResolved: resolved,
		Type:       models.RelCalls,
	})
}
