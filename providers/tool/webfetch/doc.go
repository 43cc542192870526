// Package webfetch is a built-in tool that downloads a web page and hands
// the model its content as Markdown. [NewWebFetchTool] wraps [Fetch] for the
// tools list of a generate call; Fetch can also be used directly.
package webfetch
