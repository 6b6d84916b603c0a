// Package direnv generates shell integration snippets for portman
package direnv

// direnvHelper is the helper function users add to ~/.config/direnv/direnvrc
const direnvHelper = `# Portman helper function for direnv
# Add to ~/.config/direnv/direnvrc

use_portman() {
    eval "$(portman export --auto)"
}
`

// envrcContent is the recommended per-project .envrc line
const envrcContent = `eval "$(portman export --auto)"
`

// EnvrcContent returns the recommended .envrc content
func EnvrcContent() string {
	return envrcContent
}

// DirenvrcHelper returns the direnvrc helper function
func DirenvrcHelper() string {
	return direnvHelper
}
