// Package macro expands driver templates against a variable store.
//
// Markers:
//
//	${NAME}                      variable, one shell word per token
//	${PFX_%NAME%}                indirection: %NAME% is replaced by NAME's value
//	                             before the enclosing name is looked up
//	${COND ? THEN}               conditional, empty when COND is false
//	${COND ? THEN : ELSE}        conditional with alternative; the separator
//	                             is a colon standing alone between spaces, so
//	                             ${X ? -Wl,a:b} keeps its colon
//	${#NAME ...}                 NAME is defined and truthy
//	${!COND ...}                 negation
//	${NAME==LIT ...}             joined value equals LIT (also !=)
//	${@AddPrefix:PFX:NAME}       PFX prepended to every token of NAME
//
// A condition used without "?" expands to "1" or "0". Branches are
// templates themselves and may nest to any depth; only the taken branch is
// evaluated. Text outside markers is copied verbatim, so a string without
// "${" always expands to itself. Variable values are not expanded again;
// each token is inserted as one shell word, quoted when it holds whitespace
// or shell metacharacters, so ExpandTokens and a shell-word splitter give
// back the stored tokens unchanged.
//
// Expansion runs in two phases. The indirection pass rewrites every %NAME%
// inside a marker, repeating while rewrites keep producing new references;
// more than MaxDepth passes, or a reference that rewrites to itself, is
// ErrCyclicIndirection. The macro pass then
// resolves markers left to right.
package macro
