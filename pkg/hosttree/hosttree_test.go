package hosttree_test

import (
	"strings"
	"testing"

	"github.com/delaneyj/treectx/pkg/hosttree"
	"github.com/delaneyj/treectx/pkg/treectx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><body>
  <main id="main">
    <amp-carousel id="carousel">
      <img id="one">
      <img id="two">
    </amp-carousel>
  </main>
</body></html>`

func parse(t *testing.T) (*hosttree.Forest, *hosttree.Node) {
	t.Helper()
	f := hosttree.NewForest()
	doc, err := f.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return f, doc
}

func TestParse(t *testing.T) {
	_, doc := parse(t)
	assert.Equal(t, treectx.HostDocument, doc.HostKind())
	assert.Nil(t, doc.ParentHost())

	carousel := doc.ByID("carousel")
	require.NotNil(t, carousel)
	assert.Equal(t, "amp-carousel", carousel.Tag())
	assert.True(t, carousel.AutoContext())
	assert.False(t, doc.ByID("main").AutoContext())
	assert.Equal(t, "#document > html > body > main#main > amp-carousel#carousel", carousel.Path())

	imgs := doc.Find("amp-carousel img")
	require.Len(t, imgs, 2)
	assert.Equal(t, "one", imgs[0].ID())
	assert.Same(t, carousel, imgs[0].ParentHost())
	assert.Same(t, imgs[1], doc.ByID("two"), "nodes are wrapped once")
	assert.Nil(t, doc.ByID("missing"))
}

func TestNewElement(t *testing.T) {
	f := hosttree.NewForest()
	el := f.NewElement("DIV", "id", "a", "data-x", "1")
	assert.Equal(t, "div", el.Tag())
	assert.Equal(t, treectx.HostElement, el.HostKind())

	v, ok := el.Attr("data-x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	el.SetAttr("data-x", "2")
	el.SetAttr("data-y", "3")
	v, _ = el.Attr("data-x")
	assert.Equal(t, "2", v)
	assert.Len(t, el.Attrs(), 3)

	el.RemoveAttr("data-x")
	_, ok = el.Attr("data-x")
	assert.False(t, ok)

	assert.Panics(t, func() { f.NewElement("div", "id") })
	assert.Equal(t, treectx.HostOther, f.NewText("hi").HostKind())
}

func TestTreeEdits(t *testing.T) {
	f := hosttree.NewForest()
	doc := f.NewDocument()
	a := f.NewElement("div", "id", "a")
	b := f.NewElement("div", "id", "b")
	c := f.NewElement("div", "id", "c")
	doc.AppendChild(a)
	a.AppendChild(c)
	a.InsertBefore(b, c)

	assert.Equal(t, []*hosttree.Node{b, c}, a.Children())
	assert.True(t, doc.Contains(c))
	assert.True(t, c.Contains(c))
	assert.False(t, c.Contains(a))

	c.Remove()
	assert.Nil(t, c.Parent())
	assert.Nil(t, c.ParentHost())
	assert.False(t, doc.Contains(c))

	frag := f.NewFragment()
	assert.Equal(t, treectx.HostFragment, frag.HostKind())
	frag.AppendChild(c)
	assert.Same(t, frag, c.ParentHost())

	doc.AppendChild(frag)
	assert.Empty(t, frag.Children(), "appending a fragment moves its children")
	assert.Same(t, doc, c.Parent())
}

func TestShadowRootAndSlots(t *testing.T) {
	f := hosttree.NewForest()
	doc := f.NewDocument()
	host := f.NewElement("div", "id", "host")
	doc.AppendChild(host)

	shadow := host.AttachShadow()
	assert.Same(t, shadow, host.AttachShadow())
	assert.True(t, shadow.IsShadowRoot())
	assert.Same(t, host, shadow.Host())
	assert.Same(t, host, shadow.ParentHost())
	assert.Equal(t, "#document > div#host > #shadow-root", shadow.Path())

	def := f.NewElement("slot", "id", "default")
	named := f.NewElement("slot", "id", "named", "name", "a")
	shadow.AppendChild(def)
	shadow.AppendChild(named)

	plain := f.NewElement("span")
	slotted := f.NewElement("span", "slot", "a")
	unmatched := f.NewElement("span", "slot", "b")
	host.AppendChild(plain)
	host.AppendChild(slotted)
	host.AppendChild(unmatched)

	assert.Same(t, def, plain.AssignedSlot())
	assert.Same(t, named, slotted.AssignedSlot())
	assert.Nil(t, unmatched.AssignedSlot())
	assert.Nil(t, def.AssignedSlot())

	assert.True(t, host.Contains(def))
	assert.Empty(t, host.Find("slot"), "shadow trees are not searched")

	assert.Panics(t, func() { doc.AttachShadow() })
}

func TestEngineDiscoversParsedTree(t *testing.T) {
	_, doc := parse(t)
	e := treectx.New()

	img := e.Get(doc.ByID("one"))
	_, err := e.Flush()
	require.NoError(t, err)

	carousel, ok := e.Lookup(doc.ByID("carousel"))
	require.True(t, ok, "auto context elements get a node")
	assert.Same(t, carousel, img.Parent())
	assert.Same(t, e.Get(doc), carousel.Parent())
}
