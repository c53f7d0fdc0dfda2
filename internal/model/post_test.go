package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostPatch_Apply(t *testing.T) {
	cat := "c1"
	p := Post{Title: "old", Content: "body", Excerpt: "ex", CategoryID: &cat, Status: PostDraft, Tags: []string{"a"}}

	title, status := "new", PostPublished
	PostPatch{Title: &title, Status: &status}.Apply(&p)
	assert.Equal(t, "new", p.Title)
	assert.Equal(t, "body", p.Content)
	assert.Equal(t, PostPublished, p.Status)
	assert.Equal(t, &cat, p.CategoryID)

	empty := ""
	tags := []string{"b", "c"}
	PostPatch{CategoryID: &empty, Tags: &tags}.Apply(&p)
	assert.Nil(t, p.CategoryID)
	assert.Equal(t, []string{"b", "c"}, p.Tags)

	tags[0] = "mutated"
	assert.Equal(t, "b", p.Tags[0], "tags are copied")
}

func TestPostFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, PostFilter{Page: 0, Limit: 10}.Offset())
	assert.Equal(t, 0, PostFilter{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, PostFilter{Page: 3, Limit: 10}.Offset())
}

func TestParsePostStatus(t *testing.T) {
	s, err := ParsePostStatus("published")
	assert.NoError(t, err)
	assert.Equal(t, PostPublished, s)
	_, err = ParsePostStatus("archived")
	assert.Error(t, err)
}
