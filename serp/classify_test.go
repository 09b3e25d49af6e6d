package serp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	testCases := []struct {
		in      string
		r, g, b int
		ok      bool
	}{
		{in: "rgb(0, 104, 195)", r: 0, g: 104, b: 195, ok: true},
		{in: "rgba(17, 17, 17, 0.8)", r: 17, g: 17, b: 17, ok: true},
		{in: "rgb(0 0 238 / 50%)", r: 0, g: 0, b: 238, ok: true},
		{in: "#03c", r: 0, g: 0x33, b: 0xcc, ok: true},
		{in: "#1A0DAB", r: 0x1a, g: 0x0d, b: 0xab, ok: true},
		{in: "blue"},
		{in: "rgb(1,2)"},
		{in: "#12345"},
	}
	for _, tc := range testCases {
		r, g, b, ok := ParseColor(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		if ok {
			assert.Equal(t, []int{tc.r, tc.g, tc.b}, []int{r, g, b}, tc.in)
		}
	}
}

func TestIsBlueColor(t *testing.T) {
	assert.True(t, IsBlueColor("rgb(0, 104, 195)", 40))
	assert.True(t, IsBlueColor("#1a0dab", 40))
	// bluish gray used for metadata lines
	assert.False(t, IsBlueColor("rgb(118, 128, 150)", 40))
	assert.False(t, IsBlueColor("rgb(34, 34, 34)", 40))
	assert.False(t, IsBlueColor("", 40))
}

func TestIsBoldWeight(t *testing.T) {
	assert.True(t, IsBoldWeight("700"))
	assert.True(t, IsBoldWeight("600"))
	assert.True(t, IsBoldWeight("bold"))
	assert.True(t, IsBoldWeight("Bolder"))
	assert.False(t, IsBoldWeight("400"))
	assert.False(t, IsBoldWeight("normal"))
}

func TestNewVisibleElement(t *testing.T) {
	el := NewVisibleElement("  제목  ", 10, 120, RawStyle{FontSize: "17px", FontWeight: "700", Color: "rgb(0, 0, 238)"}, "https://blog.example/1", true, 40)
	assert.Equal(t, "제목", el.Text)
	assert.Equal(t, 17.0, el.FontSize)
	assert.True(t, el.IsBold)
	assert.True(t, el.ColorIsBlue)
	assert.True(t, el.HasHref)
}

func title(text string, y float64) VisibleElement {
	return VisibleElement{Text: text, Y: y, X: 20, FontSize: 17, ColorIsBlue: true, HasHref: true, Href: "https://blog.example/" + text, Visible: true}
}

func date(text string, y float64) VisibleElement {
	return VisibleElement{Text: text, Y: y, X: 20, FontSize: 13, Visible: true}
}

func small(text string, y float64) VisibleElement {
	return VisibleElement{Text: text, Y: y, X: 80, FontSize: 13, Visible: true}
}

func TestClassify(t *testing.T) {
	strict := NewClassifier(Thresholds{}, SnippetVariant)
	sizeOnly := NewClassifier(Thresholds{}, NicknameVariant)

	grayTitle := title("회색 제목", 100)
	grayTitle.ColorIsBlue = false

	blueDate := date("2024.09.04.", 140)
	blueDate.ColorIsBlue = true

	testCases := []struct {
		name string
		c    *Classifier
		el   VisibleElement
		want Role
	}{
		{name: "blue title", c: strict, el: title("블로그 후기", 100), want: RoleTitle},
		{name: "gray title strict", c: strict, el: grayTitle, want: RoleIgnore},
		{name: "gray title size only", c: sizeOnly, el: grayTitle, want: RoleTitle},
		{name: "title above viewport", c: strict, el: title("위쪽", 0), want: RoleIgnore},
		{name: "absolute date", c: strict, el: date("2024.09.04", 140), want: RoleDate},
		{name: "absolute date trailing dot", c: strict, el: date("2024. 9. 4.", 140), want: RoleDate},
		{name: "relative date", c: strict, el: date("3일 전", 140), want: RoleDate},
		{name: "hours", c: strict, el: date("12시간 전", 140), want: RoleDate},
		{name: "yesterday", c: strict, el: date("어제", 140), want: RoleDate},
		{name: "just now", c: strict, el: date("방금 전", 140), want: RoleDate},
		{name: "blue date", c: strict, el: blueDate, want: RoleIgnore},
		{name: "body text", c: strict, el: date("2024.09.04에 방문했어요", 140), want: RoleIgnore},
		{name: "invisible", c: strict, el: VisibleElement{Text: "3일 전", Y: 10, FontSize: 13}, want: RoleIgnore},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.Classify(tc.el).Role)
		})
	}
}

func TestClassifyAllAuthors(t *testing.T) {
	elements := []VisibleElement{
		small("치과맘", 80),
		date("3일 전", 80),
		title("부천 치아교정 후기", 110),
		small("본문 미리보기 텍스트", 400),
	}

	got := NewClassifier(Thresholds{}, NicknameVariant).ClassifyAll(elements)
	require.Len(t, got, 3)
	assert.Equal(t, RoleAuthor, got[0].Role)
	assert.Equal(t, RoleDate, got[1].Role)
	assert.Equal(t, RoleTitle, got[2].Role)

	// the snippet variant never tags authors
	got = NewClassifier(Thresholds{}, SnippetVariant).ClassifyAll(elements)
	for _, e := range got {
		assert.NotEqual(t, RoleAuthor, e.Role)
	}
}

func TestCluster(t *testing.T) {
	in := []ClassifiedEntry{
		{Role: RoleTitle, Text: "부천 치아교정", Y: 102},
		{Role: RoleTitle, Text: "부천 치아교정 잘하는 곳", Y: 100},
		{Role: RoleTitle, Text: "강남 임플란트", Y: 300},
		{Role: RoleTitle, Text: "강남", Y: 320},
	}
	original := append([]ClassifiedEntry(nil), in...)

	got := Cluster(in, 30)
	require.Len(t, got, 2)
	assert.Equal(t, "부천 치아교정 잘하는 곳", got[0].Text)
	assert.Equal(t, "강남 임플란트", got[1].Text)
	assert.Equal(t, original, in)

	assert.Nil(t, Cluster(nil, 30))
}

func TestClusterChainsNeighbours(t *testing.T) {
	// each step is under the gap, so the whole run folds into one entry
	// although its ends are 60px apart
	in := []ClassifiedEntry{
		{Role: RoleDate, Text: "3일 전", Y: 0},
		{Role: RoleDate, Text: "2024.09.04.", Y: 20},
		{Role: RoleDate, Text: "어제", Y: 40},
		{Role: RoleDate, Text: "1일 전", Y: 60},
	}
	got := Cluster(in, 30)
	require.Len(t, got, 1)
	assert.Equal(t, "2024.09.04.", got[0].Text)

	// a single step at the gap breaks the chain
	in = append(in, ClassifiedEntry{Role: RoleDate, Text: "방금 전", Y: 90})
	got = Cluster(in, 30)
	require.Len(t, got, 2)
	assert.Equal(t, "방금 전", got[1].Text)
}
