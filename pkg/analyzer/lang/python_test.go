package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/models"
)

func analyzePython(t *testing.T, src string) *Result {
	t.Helper()
	res, err := NewPythonAnalyzer().Analyze("billing.py", []byte(src), "")
	require.NoError(t, err)
	return res
}

func TestPythonExtractsComponents(t *testing.T) {
	res := analyzePython(t, `class Invoice:
    """Represents a customer invoice."""

    def total(self, tax_rate):
        """Returns the invoice total."""
        return self.subtotal() * (1 + tax_rate)

    def subtotal(self):
        return 0


def create_invoice(customer):
    return Invoice()
`)

	cls := findComponent(t, res, "billing.Invoice")
	assert.Equal(t, models.TypeClass, cls.Type)
	assert.True(t, cls.HasDocstring)
	assert.Equal(t, "Represents a customer invoice.", cls.Docstring)

	total := findComponent(t, res, "billing.Invoice.total")
	assert.Equal(t, models.TypeMethod, total.Type)
	assert.Equal(t, "Invoice", total.ClassName)
	assert.Equal(t, "Returns the invoice total.", total.Docstring)
	require.Len(t, total.Parameters, 2)
	assert.Equal(t, "self", total.Parameters[0].Name)
	assert.Equal(t, "tax_rate", total.Parameters[1].Name)

	fn := findComponent(t, res, "billing.create_invoice")
	assert.Equal(t, models.TypeFunction, fn.Type)
	assert.False(t, fn.HasDocstring)
}

func TestPythonResolvesSelfCalls(t *testing.T) {
	res := analyzePython(t, `class Invoice:
    def total(self):
        return self.subtotal()

    def subtotal(self):
        return 0
`)

	edge := findEdge(res, "billing.Invoice.total", "billing.Invoice.subtotal")
	require.NotNil(t, edge)
	assert.True(t, edge.IsResolved)
	assert.Equal(t, models.RelCalls, edge.Type)
}

func TestPythonResolvesClassInstantiation(t *testing.T) {
	res := analyzePython(t, `class Invoice:
    pass


def create_invoice():
    return Invoice()
`)

	edge := findEdge(res, "billing.create_invoice", "billing.Invoice")
	require.NotNil(t, edge)
	assert.True(t, edge.IsResolved)
}

func TestPythonInheritanceEdge(t *testing.T) {
	res := analyzePython(t, `class Document:
    pass


class Invoice(Document):
    pass
`)

	edge := findEdge(res, "billing.Invoice", "Document")
	require.NotNil(t, edge)
	assert.Equal(t, models.RelInherits, edge.Type)
	assert.False(t, edge.IsResolved)
}

func TestPythonSkipsBuiltins(t *testing.T) {
	res := analyzePython(t, `def report(items):
    print(len(items))
    return sorted(items)
`)

	assert.Empty(t, res.Relationships)
}

func TestPythonDecoratedDefinitions(t *testing.T) {
	res := analyzePython(t, `class Invoice:
    @property
    def total(self):
        return 0
`)

	c := findComponent(t, res, "billing.Invoice.total")
	assert.Equal(t, models.TypeMethod, c.Type)
}

func TestPythonAttributeCallFallsBackToText(t *testing.T) {
	res := analyzePython(t, `def send(client):
    client.post("/invoices")
`)

	edge := findEdge(res, "billing.send", "client.post")
	require.NotNil(t, edge)
	assert.False(t, edge.IsResolved)
}
