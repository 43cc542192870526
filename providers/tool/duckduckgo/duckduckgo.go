package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifold-ai/manifold/internal/httpx"
	"github.com/manifold-ai/manifold/providers/tool"
)

// baseURL is a variable so tests can point the tool at a local server.
var baseURL = "https://api.duckduckgo.com/"

const (
	userAgent        = "manifold-duckduckgo/1.0"
	maxRelatedTopics = 5
)

type Input struct {
	Query string `json:"query" jsonschema:"description=The search query to look up on DuckDuckGo,required"`
}

// Output is the compact form: a single human-readable summary string.
type Output struct {
	Query   string `json:"query" jsonschema:"description=The original search query"`
	Summary string `json:"summary" jsonschema:"description=Summary of search results including abstracts, answers, and related topics"`
}

// AdvancedOutput carries the full structured instant-answer payload.
type AdvancedOutput struct {
	Query          string         `json:"query" jsonschema:"description=The original search query"`
	Abstract       string         `json:"abstract,omitempty" jsonschema:"description=Abstract text about the topic"`
	AbstractSource string         `json:"abstract_source,omitempty" jsonschema:"description=Source name for the abstract (e.g. Wikipedia)"`
	AbstractURL    string         `json:"abstract_url,omitempty" jsonschema:"description=URL to the source of the abstract"`
	Answer         string         `json:"answer,omitempty" jsonschema:"description=Instant answer for the query (calculations conversions etc)"`
	AnswerType     string         `json:"answer_type,omitempty" jsonschema:"description=Type of answer provided"`
	Definition     string         `json:"definition,omitempty" jsonschema:"description=Dictionary definition if available"`
	DefinitionURL  string         `json:"definition_url,omitempty" jsonschema:"description=URL to the definition source"`
	Heading        string         `json:"heading,omitempty" jsonschema:"description=Heading or title of the result"`
	Image          string         `json:"image,omitempty" jsonschema:"description=URL to a relevant image"`
	ImageWidth     string         `json:"image_width,omitempty" jsonschema:"description=Width of the image in pixels"`
	ImageHeight    string         `json:"image_height,omitempty" jsonschema:"description=Height of the image in pixels"`
	ImageIsLogo    string         `json:"image_is_logo,omitempty" jsonschema:"description=1 if image is a logo 0 otherwise"`
	RelatedTopics  []RelatedTopic `json:"related_topics,omitempty" jsonschema:"description=List of related topics with full metadata"`
	Results        []Result       `json:"results,omitempty" jsonschema:"description=Additional search results"`
	Type           string         `json:"type,omitempty" jsonschema:"description=Type of result (A=article C=category D=disambiguation E=exclusive N=nothing)"`
	Redirect       string         `json:"redirect,omitempty" jsonschema:"description=Redirect URL if applicable"`
}

type RelatedTopic struct {
	FirstURL string `json:"first_url" jsonschema:"description=URL to the related topic"`
	Icon     Icon   `json:"icon" jsonschema:"description=Icon information with absolute URL"`
	Result   string `json:"result" jsonschema:"description=HTML formatted result"`
	Text     string `json:"text" jsonschema:"description=Plain text description of the topic"`
}

type Result struct {
	FirstURL string `json:"first_url" jsonschema:"description=URL to the result"`
	Icon     Icon   `json:"icon" jsonschema:"description=Icon information with absolute URL"`
	Result   string `json:"result" jsonschema:"description=HTML formatted result"`
	Text     string `json:"text" jsonschema:"description=Plain text description of the result"`
}

type Icon struct {
	URL    string `json:"url" jsonschema:"description=Icon URL (absolute)"`
	Height string `json:"height" jsonschema:"description=Icon height in pixels"`
	Width  string `json:"width" jsonschema:"description=Icon width in pixels"`
}

// NewDuckDuckGoSearchTool returns the compact search tool.
func NewDuckDuckGoSearchTool() *tool.Tool[Input, Output] {
	return tool.New(
		"DuckDuckGoSearch",
		Search,
		tool.WithDescription("Search the web using DuckDuckGo search engine. Returns instant answers, abstracts, and related topics summary for a given query."),
	)
}

// NewDuckDuckGoSearchAdvancedTool returns the structured search tool.
func NewDuckDuckGoSearchAdvancedTool() *tool.Tool[Input, AdvancedOutput] {
	return tool.New(
		"DuckDuckGoSearchAdvanced",
		SearchAdvanced,
		tool.WithDescription("Advanced web search using DuckDuckGo. Returns complete structured results including abstracts, answers, definitions, related topics with full metadata, and image information with absolute URLs."),
	)
}

// Search queries the Instant Answer API and condenses the response into a
// short textual summary.
func Search(ctx context.Context, req Input) (Output, error) {
	answer, err := queryInstantAnswers(ctx, req.Query)
	if err != nil {
		return Output{}, err
	}

	var sections []string

	if answer.AbstractText != "" {
		sections = append(sections, "Abstract: "+answer.AbstractText)
		if answer.AbstractURL != "" {
			sections = append(sections, "Source: "+answer.AbstractURL)
		}
	}
	if answer.Answer != "" {
		sections = append(sections, "Answer: "+answer.Answer)
	}
	if answer.Definition != "" {
		sections = append(sections, "Definition: "+answer.Definition)
	}

	var topics []string
	for _, topic := range answer.RelatedTopics {
		if len(topics) == maxRelatedTopics {
			break
		}
		if topic.Text != "" {
			topics = append(topics, topic.Text)
		}
	}
	if len(topics) > 0 {
		sections = append(sections, "Related topics: "+strings.Join(topics, "; "))
	}

	summary := strings.Join(sections, "\n\n")
	if summary == "" {
		summary = "No results found for this query."
	}

	return Output{Query: req.Query, Summary: summary}, nil
}

// SearchAdvanced queries the Instant Answer API and maps the complete
// response, converting relative URLs to absolute and image dimensions to
// strings.
func SearchAdvanced(ctx context.Context, req Input) (AdvancedOutput, error) {
	answer, err := queryInstantAnswers(ctx, req.Query)
	if err != nil {
		return AdvancedOutput{}, err
	}

	out := AdvancedOutput{
		Query:          req.Query,
		Abstract:       answer.AbstractText,
		AbstractSource: answer.AbstractSource,
		AbstractURL:    answer.AbstractURL,
		Answer:         answer.Answer,
		AnswerType:     answer.AnswerType,
		Definition:     answer.Definition,
		DefinitionURL:  answer.DefinitionURL,
		Heading:        answer.Heading,
		Image:          makeAbsoluteURL(answer.Image),
		ImageWidth:     answer.ImageWidth.String(),
		ImageHeight:    answer.ImageHeight.String(),
		ImageIsLogo:    answer.ImageIsLogo.String(),
		Type:           answer.Type,
		Redirect:       answer.Redirect,
	}
	for _, rt := range answer.RelatedTopics {
		out.RelatedTopics = append(out.RelatedTopics, RelatedTopic{
			FirstURL: rt.FirstURL,
			Icon:     rt.Icon.toIcon(),
			Result:   rt.Result,
			Text:     rt.Text,
		})
	}
	for _, r := range answer.Results {
		out.Results = append(out.Results, Result{
			FirstURL: r.FirstURL,
			Icon:     r.Icon.toIcon(),
			Result:   r.Result,
			Text:     r.Text,
		})
	}
	return out, nil
}

func queryInstantAnswers(ctx context.Context, query string) (*DDGResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer httpx.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var answer DDGResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return &answer, nil
}

// DDGResponse mirrors the Instant Answer API wire format.
type DDGResponse struct {
	Abstract       string      `json:"Abstract"`
	AbstractText   string      `json:"AbstractText"`
	AbstractSource string      `json:"AbstractSource"`
	AbstractURL    string      `json:"AbstractURL"`
	Answer         string      `json:"Answer"`
	AnswerType     string      `json:"AnswerType"`
	Definition     string      `json:"Definition"`
	DefinitionURL  string      `json:"DefinitionURL"`
	Heading        string      `json:"Heading"`
	Image          string      `json:"Image"`
	ImageWidth     flexibleInt `json:"ImageWidth"`
	ImageHeight    flexibleInt `json:"ImageHeight"`
	ImageIsLogo    flexibleInt `json:"ImageIsLogo"`
	RelatedTopics  []ddgLink   `json:"RelatedTopics"`
	Results        []ddgLink   `json:"Results"`
	Type           string      `json:"Type"`
	Redirect       string      `json:"Redirect"`
}

// ddgLink is the wire shape shared by RelatedTopics and Results entries.
type ddgLink struct {
	FirstURL string  `json:"FirstURL"`
	Icon     ddgIcon `json:"Icon"`
	Result   string  `json:"Result"`
	Text     string  `json:"Text"`
}

type ddgIcon struct {
	URL    string      `json:"URL"`
	Height flexibleInt `json:"Height"`
	Width  flexibleInt `json:"Width"`
}

func (i ddgIcon) toIcon() Icon {
	return Icon{
		URL:    makeAbsoluteURL(i.URL),
		Height: i.Height.String(),
		Width:  i.Width.String(),
	}
}

// flexibleInt accepts both "80" and 80; the API is inconsistent about which
// it sends for image dimensions.
type flexibleInt string

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexibleInt(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleInt(s)
		return nil
	}
	*f = ""
	return nil
}

func (f *flexibleInt) String() string { return string(*f) }

// makeAbsoluteURL resolves the site-relative paths DuckDuckGo uses for icons
// and images against the duckduckgo.com origin.
func makeAbsoluteURL(urlPath string) string {
	switch {
	case urlPath == "":
		return ""
	case strings.HasPrefix(urlPath, "http://"), strings.HasPrefix(urlPath, "https://"):
		return urlPath
	case strings.HasPrefix(urlPath, "/"):
		return "https://duckduckgo.com" + urlPath
	default:
		return urlPath
	}
}
