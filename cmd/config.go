package cmd

import (
    "bufio"
    "fmt"
    "os"
    "strings"

    "github.com/spf13/cobra"
    "gopkg.in/yaml.v3"

    "orderdash/internal/config"
    "orderdash/internal/security"
    "orderdash/internal/ui"
    "orderdash/pkg/errors"
)

func newConfigCmd(a *app) *cobra.Command {
    cmd := &cobra.Command{
        Use:   "config",
        Short: "Create and inspect the orderdash configuration",
    }
    cmd.AddCommand(
        newConfigInitCmd(a),
        newConfigShowCmd(a),
        newConfigSetPasswordCmd(a),
    )
    return cmd
}

type configInitOptions struct {
    interactive bool
    force       bool
}

func newConfigInitCmd(a *app) *cobra.Command {
    opts := &configInitOptions{}

    cmd := &cobra.Command{
        Use:   "init",
        Short: "Write a config file with the default settings",
        Long: `Write config.yaml to --config, $ORDERDASH_CONFIG or ~/.orderdash/config.yaml.

With --interactive a wizard asks for the source, the Snowflake connection and
the cache schedule. The Snowflake password goes to the system keyring, never
to the config file.`,
        Args:        cobra.NoArgs,
        Annotations: map[string]string{skipConfigAnnotation: "true"},
        RunE: func(cmd *cobra.Command, args []string) error {
            return a.runConfigInit(cmd, opts)
        },
    }

    cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Run the configuration wizard")
    cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")
    return cmd
}

func (a *app) runConfigInit(cmd *cobra.Command, opts *configInitOptions) error {
    path := a.flags.configFile
    if path == "" {
        path = config.GetConfigFile()
    }

    if _, err := os.Stat(path); err == nil && !opts.force {
        if !opts.interactive {
            return errors.New(errors.ErrCodeFileOperation, fmt.Sprintf("Config file %s already exists", path)).
                WithSuggestions("Use --force to overwrite it")
        }
        overwrite, err := ui.Confirm(ui.SurveyAsker{}, fmt.Sprintf("%s exists. Overwrite?", path), false)
        if err != nil {
            return err
        }
        if !overwrite {
            a.ui.Info("Config left unchanged")
            return nil
        }
    }

    cfg := config.Defaults()
    password := ""
    if opts.interactive {
        result, err := ui.NewConfigWizard(ui.SurveyAsker{}).Run(cfg)
        if err != nil {
            return err
        }
        cfg, password = result.Config, result.Password
    }

    written, err := config.Save(cfg, path)
    if err != nil {
        return err
    }
    a.ui.Success("Configuration written to " + written)

    if password != "" {
        store := security.NewCredentialStore()
        if err := store.StorePassword(cfg.Snowflake.Account, cfg.Snowflake.Username, password); err != nil {
            a.ui.Warning(fmt.Sprintf("Could not store the password in the keyring: %v", err))
            a.ui.Info("Set " + security.PasswordEnv + " instead")
            return nil
        }
        a.ui.Success("Password stored in the system keyring")
    }
    return nil
}

func newConfigShowCmd(a *app) *cobra.Command {
    return &cobra.Command{
        Use:   "show",
        Short: "Print the effective configuration",
        Long:  `Print the configuration after applying the config file, ORDERDASH_* environment variables and defaults. Passwords are masked.`,
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            data, err := yaml.Marshal(config.Redacted(a.config))
            if err != nil {
                return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to marshal config")
            }
            out := cmd.OutOrStdout()
            if file := a.viper.ConfigFileUsed(); file != "" {
                fmt.Fprintf(out, "# %s\n", file)
            } else {
                fmt.Fprintln(out, "# no config file, defaults and environment only")
            }
            _, err = out.Write(data)
            return err
        },
    }
}

type setPasswordOptions struct {
    stdin  bool
    delete bool
}

func newConfigSetPasswordCmd(a *app) *cobra.Command {
    opts := &setPasswordOptions{}

    cmd := &cobra.Command{
        Use:   "set-password",
        Short: "Store the Snowflake password in the system keyring",
        Long: `Store the password for snowflake.account and snowflake.username in the
system keyring. ` + security.PasswordEnv + ` still takes precedence when set.`,
        Args: cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            return a.runSetPassword(cmd, opts)
        },
    }

    cmd.Flags().BoolVar(&opts.stdin, "password-stdin", false, "Read the password from stdin")
    cmd.Flags().BoolVar(&opts.delete, "delete", false, "Remove the stored password")
    return cmd
}

func (a *app) runSetPassword(cmd *cobra.Command, opts *setPasswordOptions) error {
    sf := a.config.Snowflake
    if sf.Account == "" || sf.Username == "" {
        return errors.ConfigError("snowflake.account and snowflake.username are required", "snowflake.account").
            WithSuggestions("Run 'orderdash config init --interactive'")
    }

    store := security.NewCredentialStore()
    if opts.delete {
        if err := store.DeletePassword(sf.Account, sf.Username); err != nil {
            return err
        }
        a.ui.Success("Stored password removed")
        return nil
    }

    var password string
    if opts.stdin {
        line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
        if err != nil && line == "" {
            return errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to read password from stdin")
        }
        password = strings.TrimRight(line, "\r\n")
    } else {
        var err error
        password, err = ui.Password(ui.SurveyAsker{}, "Snowflake password:", "Stored in the system keyring")
        if err != nil {
            return err
        }
    }
    if password == "" {
        return errors.ValidationError("password", "", "must not be empty")
    }

    if err := store.StorePassword(sf.Account, sf.Username, password); err != nil {
        return err
    }
    a.ui.Success(fmt.Sprintf("Password stored for %s@%s", sf.Username, sf.Account))
    return nil
}
