// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	MalformedDirectiveId Id = iota + 1
	SourceNotFoundId
	ConfigLoadFailedId
	OutputWriteFailedId
	GeneratedFilesStaleId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation about this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	malformedDirectiveIssue = &Issue{
		id: MalformedDirectiveId,
		mdMsg: `
# Malformed directive block!

A module contains an ` + "`# IFDEF CYTHON`" + ` block that cannot be transformed.
Nothing was written for the Cython source built from it.

## Things you can try:
- Make sure every block is closed with ` + "`# ENDIF`" + ` before the end of the file
- Comment every line of the Cython branch with ` + "`# `" + ` (hash and one space)
- Transform the module on its own to see the exact line:
~~~
$ pydevgen transform _pydevd_bundle/pydevd_frame.py
~~~`,
		extLinks: []HttpLink{"https://cython.readthedocs.io/en/latest/src/userguide/language_basics.html"},
	}

	sourceNotFoundIssue = &Issue{
		id: SourceNotFoundId,
		mdMsg: `
# Source module not found!

A module listed for a Cython output does not exist below the root.

## Things you can try:
- Run pydevgen from the pydevd checkout or pass ` + "`--root`" + `
- Check ` + "`cython.outputs`" + ` in your pydevgen.cue:
~~~
$ pydevgen config show
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration and the file it came from:
~~~
$ pydevgen config path
$ pydevgen config show
~~~
- Start from the defaults:
~~~
$ pydevgen config dump > pydevgen.cue
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write a generated file!

Generated files are written to a temporary file next to the target and then
renamed into place, so the target directory must be writable.

## Things you can try:
- Check the permissions of the ` + "`_pydevd_bundle`" + ` directory
- Make sure the target path is not a directory`,
	}

	generatedFilesStaleIssue = &Issue{
		id: GeneratedFilesStaleId,
		mdMsg: `
# Generated files are out of date!

The checked-in generated files differ from what the current sources produce.

## Things you can try:
- Regenerate and commit the result:
~~~
$ pydevgen generate
~~~`,
	}

	issues = map[Id]*Issue{
		malformedDirectiveIssue.Id():  malformedDirectiveIssue,
		sourceNotFoundIssue.Id():      sourceNotFoundIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		outputWriteFailedIssue.Id():   outputWriteFailedIssue,
		generatedFilesStaleIssue.Id(): generatedFilesStaleIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
