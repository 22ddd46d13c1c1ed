// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	PrivateDataDirUnusableId Id = iota + 1
	MalformedEnvFileId
	ContainerRuntimeNotFoundId
	UnsafeMountId
	SecretChannelFailedId
	ExecutableNotFoundId
	ConfigLoadFailedId
	ArtifactDirUnusableId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink
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
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

// Lookup returns the catalog entry linked from err, if any.
func Lookup(err error) *Issue {
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Issue == 0 {
		return nil
	}
	return Get(ae.Issue)
}

var (
	render = glamour.Render

	privateDataDirUnusableIssue = &Issue{
		id: PrivateDataDirUnusableId,
		mdMsg: `
# Private data directory is not usable!

The directory given as the private data directory could not be created or
is not a directory.

## Things you can try:
- Point ` + "`--private-data-dir`" + ` at a writable directory
- Leave it unset and let playrun create a temporary one`,
	}

	malformedEnvFileIssue = &Issue{
		id: MalformedEnvFileId,
		mdMsg: `
# A per-run input file is malformed!

One of the files under ` + "`<private_data_dir>/env/`" + ` exists but could not be
decoded. This usually means the private data directory is corrupt.

## How each file is treated
| file        | absent            | malformed                 |
|-------------|-------------------|---------------------------|
| envvars     | ignored           | error                     |
| passwords   | no prompt answers | no prompt answers, warned |
| settings    | defaults          | error                     |
| ssh_key     | no key            | error when unreadable     |
| cmdline     | no extra args     | error                     |

## Things you can try:
- Make sure ` + "`envvars`" + ` and ` + "`settings`" + ` are YAML or JSON mappings
- Check quoting in ` + "`cmdline`" + ``,
	}

	containerRuntimeNotFoundIssue = &Issue{
		id: ContainerRuntimeNotFoundId,
		mdMsg: `
# Container runtime not found!

Process isolation was requested but the configured runtime executable
could not be found on PATH.

## Supported runtimes:
- **podman** (default)
- **docker**

## Things you can try:
- Install Podman or Docker
- Set ` + "`process_isolation_executable`" + ` in ` + "`env/settings`" + ` or pass ` + "`--container-runtime`" + `
- Disable isolation to run on the host`,
	}

	unsafeMountIssue = &Issue{
		id: UnsafeMountId,
		mdMsg: `
# Refusing to mount a system directory!

A volume mount would bind a sensitive host directory such as ` + "`/`" + ` or
` + "`/etc`" + ` into the container.

## Things you can try:
- Mount a narrower sub-directory
- Move the private data directory out of system paths`,
	}

	secretChannelFailedIssue = &Issue{
		id: SecretChannelFailedId,
		mdMsg: `
# Could not create the SSH key delivery pipe!

The key is handed to ` + "`ssh-agent`" + ` through a named pipe in the artifact
directory. The pipe could not be created, and the key is never written to
a regular file instead.

## Things you can try:
- Check free space and permissions of the artifact directory
- Use a filesystem that supports named pipes (not some network mounts)`,
	}

	executableNotFoundIssue = &Issue{
		id: ExecutableNotFoundId,
		mdMsg: `
# Executable not found!

The command could not be resolved on the PATH of the built environment.

## Things you can try:
- Install the automation tool on the host
- Add its location to ` + "`PATH`" + ` in ` + "`env/envvars`" + `
- Run with process isolation using an image that ships it`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The playrun configuration file could not be parsed or validated.

## Things you can try:
- Check the file for CUE syntax errors
- Show the effective configuration:
~~~
$ playrun config show
~~~`,
	}

	artifactDirUnusableIssue = &Issue{
		id: ArtifactDirUnusableId,
		mdMsg: `
# Artifact directory is not usable!

The per-invocation artifact directory could not be created or written.

## Things you can try:
- Check permissions on ` + "`<private_data_dir>/artifacts`" + `
- Pick a different ` + "`--artifact-dir`" + ``,
	}

	issues = map[Id]*Issue{
		privateDataDirUnusableIssue.Id():   privateDataDirUnusableIssue,
		malformedEnvFileIssue.Id():         malformedEnvFileIssue,
		containerRuntimeNotFoundIssue.Id(): containerRuntimeNotFoundIssue,
		unsafeMountIssue.Id():              unsafeMountIssue,
		secretChannelFailedIssue.Id():      secretChannelFailedIssue,
		executableNotFoundIssue.Id():       executableNotFoundIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		artifactDirUnusableIssue.Id():      artifactDirUnusableIssue,
	}
)

func Values() []*Issue {
	return slices.Collect(maps.Values(issues))
}

func Get(id Id) *Issue {
	return issues[id]
}
