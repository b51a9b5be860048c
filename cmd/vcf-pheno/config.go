package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change persistent settings",
		Long: `Settings live in ~/.vcf-pheno.yaml unless --config names another file.
Keys mirror the flags of analyze and stats, with weights under "weights."
(e.g. weights.phenotype). Every key can also be set through a
VCF_PHENO_<KEY> environment variable.`,
		Example: `  vcf-pheno config
  vcf-pheno config set hpo_map ~/.vcf-pheno/genes_to_phenotype.txt
  vcf-pheno config set weights.phenotype 3
  vcf-pheno config get weights.phenotype
  vcf-pheno config path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd.OutOrStdout(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return getConfig(cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)

	return cmd
}

// configFilePath is the file viper loaded, or ~/.vcf-pheno.yaml when
// nothing was loaded yet.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

func showConfig(w io.Writer) error {
	settings := viper.AllSettings()
	// verbose is bound to the root flag, not a stored setting.
	delete(settings, "verbose")
	if len(settings) == 0 {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# %s: no settings\n", path)
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return enc.Close()
}

func setConfig(w io.Writer, key, raw string) error {
	value := parseConfigValue(raw)
	viper.Set(key, value)

	path, err := configFilePath()
	if err != nil {
		return err
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	fmt.Fprintf(w, "%s: %v (%T) -> %s\n", key, value, value, path)
	return nil
}

func getConfig(w io.Writer, key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("no setting named %q", key)
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}

// parseConfigValue types a command-line value the way YAML would read it
// back: on/off words become booleans, then integers, then floats.
func parseConfigValue(raw string) any {
	switch raw {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
