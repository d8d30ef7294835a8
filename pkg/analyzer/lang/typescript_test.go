package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/models"
)

func analyzeTS(t *testing.T, src string) *Result {
	t.Helper()
	res, err := NewTypeScriptAnalyzer().Analyze("cart.ts", []byte(src), "")
	require.NoError(t, err)
	return res
}

func TestTypeScriptExtractsComponents(t *testing.T) {
	res := analyzeTS(t, `export interface Item {
  price: number;
}

export enum Currency {
  USD,
  EUR,
}

export type ItemList = Item[];

export class Cart {
  items: Item[] = [];

  addItem(item: Item): void {
    this.items.push(item);
  }
}

export function checkout(cart: Cart): number {
  return 0;
}

const formatPrice = (amount: number): string => amount.toFixed(2);
`)

	assert.Equal(t, models.TypeInterface, findComponent(t, res, "cart.Item").Type)
	assert.Equal(t, models.TypeEnum, findComponent(t, res, "cart.Currency").Type)
	assert.Equal(t, models.TypeTypeAlias, findComponent(t, res, "cart.ItemList").Type)
	assert.Equal(t, models.TypeClass, findComponent(t, res, "cart.Cart").Type)

	method := findComponent(t, res, "cart.Cart.addItem")
	assert.Equal(t, models.TypeMethod, method.Type)
	assert.Equal(t, "Cart", method.ClassName)
	require.Len(t, method.Parameters, 1)
	assert.Equal(t, "item", method.Parameters[0].Name)
	assert.Contains(t, method.Parameters[0].Type, "Item")

	fn := findComponent(t, res, "cart.checkout")
	assert.Equal(t, models.TypeFunction, fn.Type)

	arrow := findComponent(t, res, "cart.formatPrice")
	assert.Equal(t, models.TypeFunction, arrow.Type)
}

func TestTypeScriptResolvesThisCalls(t *testing.T) {
	res := analyzeTS(t, `class Cart {
  total(): number {
    return this.subtotal();
  }

  subtotal(): number {
    return 0;
  }
}
`)

	edge := findEdge(res, "cart.Cart.total", "cart.Cart.subtotal")
	require.NotNil(t, edge)
	assert.True(t, edge.IsResolved)
	assert.Equal(t, models.RelCalls, edge.Type)
}

func TestTypeScriptHeritageEdges(t *testing.T) {
	res := analyzeTS(t, `interface Payable {
  pay(): void;
}

class Document {}

class Invoice extends Document implements Payable {
  pay(): void {}
}
`)

	inherits := findEdge(res, "cart.Invoice", "cart.Document")
	require.NotNil(t, inherits)
	assert.Equal(t, models.RelInherits, inherits.Type)
	assert.True(t, inherits.IsResolved)

	implements := findEdge(res, "cart.Invoice", "cart.Payable")
	require.NotNil(t, implements)
	assert.Equal(t, models.RelImplements, implements.Type)
	assert.True(t, implements.IsResolved)
}

func TestTypeScriptNewExpressionResolves(t *testing.T) {
	res := analyzeTS(t, `class Cart {}

function createCart(): Cart {
  return new Cart();
}
`)

	edge := findEdge(res, "cart.createCart", "cart.Cart")
	require.NotNil(t, edge)
	assert.True(t, edge.IsResolved)
}

func TestTypeScriptSkipsBuiltins(t *testing.T) {
	res := analyzeTS(t, `function report(items: string[]): void {
  console.log(JSON.stringify(items));
}
`)

	assert.Empty(t, res.Relationships)
}

func TestJavaScriptExtractsComponents(t *testing.T) {
	res, err := NewJavaScriptAnalyzer().Analyze("cart.js", []byte(`class Cart {
  addItem(item) {
    this.validate(item);
  }

  validate(item) {}
}

function checkout(cart) {
  return 0;
}
`), "")
	require.NoError(t, err)

	assert.Equal(t, models.TypeClass, findComponent(t, res, "cart.Cart").Type)
	assert.Equal(t, models.TypeFunction, findComponent(t, res, "cart.checkout").Type)

	edge := findEdge(res, "cart.Cart.addItem", "cart.Cart.validate")
	require.NotNil(t, edge)
	assert.True(t, edge.IsResolved)
}

func TestTSXParsesComponents(t *testing.T) {
	res, err := NewTypeScriptAnalyzer().Analyze("widget.tsx", []byte(`export function Widget() {
  return <div>ready</div>;
}
`), "")
	require.NoError(t, err)

	c := findComponent(t, res, "widget.Widget")
	assert.Equal(t, models.TypeFunction, c.Type)
}
