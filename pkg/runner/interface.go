// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playrun/playrun/internal/command"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Inventory is the parsed answer of an inventory query.
type Inventory struct {
	*Result
	// Data is the decoded output of list and host queries that succeeded;
	// graph output stays text in Result.Stdout.
	Data map[string]any
}

// RunCommand runs executable with literal args. Arguments never pass
// through a shell. base supplies everything else (directories, env,
// isolation); its target fields are ignored.
func (r *Runner) RunCommand(ctx context.Context, executable string, args []string, base Request) (*Result, error) {
	h, err := r.RunCommandAsync(ctx, executable, args, base)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// RunCommandAsync is RunCommand without waiting.
func (r *Runner) RunCommandAsync(ctx context.Context, executable string, args []string, base Request) (*Handle, error) {
	req := retarget(base)
	req.Executable = executable
	req.Args = args
	return r.RunAsync(ctx, req)
}

// GetPluginDocs queries the documentation of the named plugins.
func (r *Runner) GetPluginDocs(ctx context.Context, opts command.DocsOptions, base Request) (*Result, error) {
	h, err := r.GetPluginDocsAsync(ctx, opts, base)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// GetPluginDocsAsync is GetPluginDocs without waiting.
func (r *Runner) GetPluginDocsAsync(ctx context.Context, opts command.DocsOptions, base Request) (*Handle, error) {
	vec, err := command.PluginDocs(opts)
	if err != nil {
		return nil, err
	}
	return r.RunAsync(ctx, composed(base, vec))
}

// GetPluginList lists the available plugins.
func (r *Runner) GetPluginList(ctx context.Context, opts command.ListOptions, base Request) (*Result, error) {
	vec, err := command.PluginList(opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, composed(base, vec))
}

// GetAnsibleConfig lists, dumps or views the tool's configuration.
func (r *Runner) GetAnsibleConfig(ctx context.Context, opts command.ConfigOptions, base Request) (*Result, error) {
	vec, err := command.Config(opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, composed(base, vec))
}

// GetInventory queries inventory and decodes list and host answers in the
// requested format. A failed query returns its Result with no Data.
func (r *Runner) GetInventory(ctx context.Context, opts command.InventoryOptions, base Request) (*Inventory, error) {
	vec, err := command.Inventory(opts)
	if err != nil {
		return nil, err
	}
	res, err := r.Run(ctx, composed(base, vec))
	if err != nil {
		return nil, err
	}
	inv := &Inventory{Result: res}
	if !res.Successful() || opts.Action == "graph" || opts.OutputFile != "" {
		return inv, nil
	}
	data, err := decodeInventory(opts.Format, res.stdout)
	if err != nil {
		return inv, fmt.Errorf("decode %s inventory output: %w", formatName(opts.Format), err)
	}
	inv.Data = data
	return inv, nil
}

func decodeInventory(format string, out []byte) (map[string]any, error) {
	data := map[string]any{}
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(out, &data)
	case "toml":
		err = toml.Unmarshal(out, &data)
	default:
		err = json.Unmarshal(out, &data)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func formatName(format string) string {
	if format == "" {
		return "json"
	}
	return format
}

// retarget clears every target field of base.
func retarget(base Request) Request {
	base.Playbook = ""
	base.Plays = nil
	base.Role = ""
	base.Module = ""
	base.Executable = ""
	base.Args = nil
	base.composed = nil
	return base
}

func composed(base Request, vec command.Vector) Request {
	req := retarget(base)
	req.composed = &vec
	return req
}

// RunCommand runs executable with a default Runner.
func RunCommand(ctx context.Context, executable string, args []string, base Request) (*Result, error) {
	return defaultRunner.RunCommand(ctx, executable, args, base)
}

// RunCommandAsync starts executable with a default Runner.
func RunCommandAsync(ctx context.Context, executable string, args []string, base Request) (*Handle, error) {
	return defaultRunner.RunCommandAsync(ctx, executable, args, base)
}

// GetPluginDocs queries plugin documentation with a default Runner.
func GetPluginDocs(ctx context.Context, opts command.DocsOptions, base Request) (*Result, error) {
	return defaultRunner.GetPluginDocs(ctx, opts, base)
}

// GetPluginDocsAsync starts a plugin documentation query with a default Runner.
func GetPluginDocsAsync(ctx context.Context, opts command.DocsOptions, base Request) (*Handle, error) {
	return defaultRunner.GetPluginDocsAsync(ctx, opts, base)
}

// GetPluginList lists plugins with a default Runner.
func GetPluginList(ctx context.Context, opts command.ListOptions, base Request) (*Result, error) {
	return defaultRunner.GetPluginList(ctx, opts, base)
}

// GetAnsibleConfig queries configuration with a default Runner.
func GetAnsibleConfig(ctx context.Context, opts command.ConfigOptions, base Request) (*Result, error) {
	return defaultRunner.GetAnsibleConfig(ctx, opts, base)
}

// GetInventory queries inventory with a default Runner.
func GetInventory(ctx context.Context, opts command.InventoryOptions, base Request) (*Inventory, error) {
	return defaultRunner.GetInventory(ctx, opts, base)
}
