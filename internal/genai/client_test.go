package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peltran/giftwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModelServer stands in for the generateContent endpoint. candidateText
// becomes the single candidate's text part; status overrides the 200 default.
func fakeModelServer(t *testing.T, candidateText string, status int, capture *generateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get(config.GenAIKeyHeader), "Key must travel in the header")
		assert.NotContains(t, r.URL.RawQuery, "key", "Key must never appear in the URL")

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]any{{"text": candidateText}},
				}},
			},
		}
		w.Header().Set(config.HeaderContentType, config.MimeJSON)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL})
}

func TestRecommendGifts_Success(t *testing.T) {
	payload := `[
		{"itemName": "와인 셀렉션", "category": "음료", "reason": "와인 애호가에게 어울립니다."},
		{"itemName": "골프 장갑", "category": "스포츠", "reason": "취미와 직접 연결됩니다."},
		{"itemName": "머그컵 세트", "category": "생활용품", "reason": "부담 없는 비즈니스 선물입니다."}
	]`

	var captured generateRequest
	ts := fakeModelServer(t, payload, http.StatusOK, &captured)
	defer ts.Close()

	recs, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt text")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "와인 셀렉션", recs[0].ItemName)
	assert.Equal(t, "음료", recs[0].Category)
	assert.NotEmpty(t, recs[0].Reason)

	// The request must carry the prompt, the array schema and the creative
	// temperature.
	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Equal(t, "prompt text", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, config.MimeJSON, captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.GenerationConfig.ResponseSchema)
	assert.Equal(t, TypeArray, captured.GenerationConfig.ResponseSchema.Type)
	require.NotNil(t, captured.GenerationConfig.Temperature)
	assert.InDelta(t, config.GenAITemperature, *captured.GenerationConfig.Temperature, 0.001)
}

func TestRecommendGifts_RepairsNearJSON(t *testing.T) {
	// Trailing comma: invalid JSON that jsonrepair can recover.
	payload := `[{"itemName": "티 세트", "category": "음료", "reason": "차를 즐깁니다.",}]`

	ts := fakeModelServer(t, payload, http.StatusOK, nil)
	defer ts.Close()

	recs, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "티 세트", recs[0].ItemName)
}

func TestRecommendGifts_NonArrayResponse(t *testing.T) {
	ts := fakeModelServer(t, `"just a string"`, http.StatusOK, nil)
	defer ts.Close()

	_, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRecommendGifts_NullResponse(t *testing.T) {
	ts := fakeModelServer(t, `null`, http.StatusOK, nil)
	defer ts.Close()

	_, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrSchema, "null decodes but is not an array")
}

func TestRecommendGifts_UpstreamStatus(t *testing.T) {
	ts := fakeModelServer(t, "", http.StatusTooManyRequests, nil)
	defer ts.Close()

	_, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusTooManyRequests))
}

func TestRecommendGifts_EmptyCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).RecommendGifts(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRecommendGifts_MissingAPIKey(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.RecommendGifts(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestExtractCard_Success(t *testing.T) {
	payload := `{"name": "김민준", "affiliation": "한솔전자", "interests": ["반도체", "영업"]}`

	var captured generateRequest
	ts := fakeModelServer(t, payload, http.StatusOK, &captured)
	defer ts.Close()

	fields, err := testClient(ts.URL).ExtractCard(context.Background(), []byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "김민준", fields.Name)
	assert.Equal(t, "한솔전자", fields.Affiliation)
	assert.Equal(t, []string{"반도체", "영업"}, fields.Interests)

	// Image part first (base64 inline data), instruction part second.
	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 2)
	require.NotNil(t, captured.Contents[0].Parts[0].InlineData)
	assert.Equal(t, config.MimeJPEG, captured.Contents[0].Parts[0].InlineData.MimeType)
	assert.NotEmpty(t, captured.Contents[0].Parts[0].InlineData.Data)
	assert.NotEmpty(t, captured.Contents[0].Parts[1].Text)

	// Extraction is deterministic: no temperature override, object schema.
	assert.Nil(t, captured.GenerationConfig.Temperature)
	require.NotNil(t, captured.GenerationConfig.ResponseSchema)
	assert.Equal(t, TypeObject, captured.GenerationConfig.ResponseSchema.Type)
}

func TestExtractCard_PartialFields(t *testing.T) {
	// The model omits keys it cannot read; absent fields stay empty.
	ts := fakeModelServer(t, `{"name": "김민준", "affiliation": "한솔전자"}`, http.StatusOK, nil)
	defer ts.Close()

	fields, err := testClient(ts.URL).ExtractCard(context.Background(), []byte("fake-jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "김민준", fields.Name)
	assert.Empty(t, fields.Interests)
}

func TestExtractCard_ImageValidation(t *testing.T) {
	client := testClient("http://unused.invalid")

	_, err := client.ExtractCard(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRequest, "Empty image must fail before any network call")

	oversized := make([]byte, config.MaxImageBytes+1)
	_, err = client.ExtractCard(context.Background(), oversized)
	assert.ErrorIs(t, err, ErrRequest)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})

	assert.Equal(t, config.DefaultGenAIModel, client.Model())
	assert.Equal(t, config.DefaultGenAIBaseURL, client.baseURL)
	assert.Equal(t, config.GenAITimeout, client.httpClient.Timeout)
}

func TestDecodeStructured_ShapeMismatch(t *testing.T) {
	// Valid JSON of the wrong shape: repair cannot help, decode must fail.
	var fields CardFields
	err := decodeStructured([]byte(`[1, 2, 3]`), &fields)
	assert.ErrorIs(t, err, ErrSchema)
}
