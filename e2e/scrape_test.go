//go:build e2e

package e2e

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrape_RenderedPage(t *testing.T) {
	var page struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Link        string `json:"link"`
	}
	code := doJSON(t, http.MethodGet, baseURL+"/api/v1/scrape?url="+url.QueryEscape(jobPage.url), "", &page)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Staff Go Engineer", page.Title, "title set by script, seen only after rendering")
	assert.Equal(t, "Own the storage layer.", page.Description)
	assert.Equal(t, jobPage.url, page.Link)
}

func TestScrape_ThenCreate(t *testing.T) {
	var res struct {
		Content string `json:"content"`
		IsError bool   `json:"is_error"`
	}
	code := doJSON(t, http.MethodPost, baseURL+"/api/v1/tools/scrape_job_page", `{"url":"`+jobPage.url+`"}`, &res)
	require.Equal(t, http.StatusOK, code)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "Staff Go Engineer")

	var created record
	code = doJSON(t, http.MethodPost, baseURL+"/api/v1/jobs",
		`{"job_role":"Staff Go Engineer","summary":"storage","source":"`+jobPage.url+`"}`, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, jobPage.url, created.Source)
}

func TestScrape_Unreachable(t *testing.T) {
	var res map[string]string
	code := doJSON(t, http.MethodGet, baseURL+"/api/v1/scrape?url="+url.QueryEscape("http://127.0.0.1:1/nothing"), "", &res)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, res["error"], "failed to fetch page")
}
