package tokenizers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heatlens/heatlens/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenizerJSON = `{
	"added_tokens": [
		{"id": 0, "content": "[PAD]", "special": true},
		{"id": 100, "content": "[UNK]", "special": true},
		{"id": 101, "content": "[CLS]", "special": true},
		{"id": 102, "content": "[SEP]", "special": true}
	],
	"normalizer": {"type": "BertNormalizer", "lowercase": true},
	"pre_tokenizer": {"type": "BertPreTokenizer"},
	"model": {
		"type": "WordPiece",
		"unk_token": "[UNK]",
		"continuing_subword_prefix": "##",
		"vocab": {"good": 5, "movie": 6}
	}
}`

const tokenizerConfigJSON = `{
	"cls_token": "[CLS]",
	"sep_token": "[SEP]",
	"tokenizer_class": "BertTokenizer"
}`

func newHubServer(t *testing.T, files map[string]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, content := range files {
			if r.URL.Path == "/test-model/resolve/main/"+name {
				_, _ = w.Write([]byte(content))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFromRepo(t *testing.T) {
	srv := newHubServer(t, map[string]string{
		"tokenizer.json":        tokenizerJSON,
		"tokenizer_config.json": tokenizerConfigJSON,
	})
	repo := hub.New("test-model").WithEndpoint(srv.URL).WithCacheDir(t.TempDir())

	tok, err := FromRepo(repo)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 6}, tok.Encode("Good movie"))
	assert.Equal(t, "[SEP]", tok.SeparatorToken())
	assert.Equal(t, []int{0, 100, 101, 102}, tok.SpecialTokenIDs())
}

func TestFromRepo_ConfigOptional(t *testing.T) {
	srv := newHubServer(t, map[string]string{"tokenizer.json": tokenizerJSON})
	repo := hub.New("test-model").WithEndpoint(srv.URL).WithCacheDir(t.TempDir())

	tok, err := FromRepo(repo)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, tok.Encode("good"))
}

func TestFromRepo_MissingTokenizer(t *testing.T) {
	srv := newHubServer(t, nil)
	repo := hub.New("test-model").WithEndpoint(srv.URL).WithCacheDir(t.TempDir())

	_, err := FromRepo(repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenizer.json")
}
