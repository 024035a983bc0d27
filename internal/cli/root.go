// Package cli 实现 ttctl 命令行
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ashwinyue/traintrack/pkg/client"
)

const defaultServer = "http://localhost:8000"

// app 命令共享的状态
type app struct {
	v         *viper.Viper
	client    *client.Client
	sessionID string
}

// NewRootCommand 创建 ttctl 根命令
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "ttctl",
		Short: "Track ML training runs, losses and metrics",
		Long: `ttctl talks to a traintrack server.

Register models, start runs, log losses and metrics, and query them back.
Use --session (or TRAINTRACK_SESSION) to let a server-side session remember
the current model and run between invocations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.client = client.New(a.v.GetString("server"))
			a.sessionID = a.v.GetString("session")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "traintrack server URL")
	flags.String("session", "", "server-side session holding the current model and run")

	a.v.SetEnvPrefix("TRAINTRACK")
	a.v.AutomaticEnv()
	a.v.BindPFlag("server", flags.Lookup("server"))
	a.v.BindPFlag("session", flags.Lookup("session"))

	root.AddCommand(
		newModelCmd(a),
		newProjectCmd(a),
		newRunCmd(a),
		newLossCmd(a),
		newMetricCmd(a),
		newSessionCmd(a),
	)
	return root
}

// Execute 运行 ttctl
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session 返回 --session 指定的服务端会话，未指定时返回 nil
func (a *app) session(ctx context.Context) (*client.SessionState, error) {
	if a.sessionID == "" {
		return nil, nil
	}
	return a.client.GetSessionState(ctx, a.sessionID)
}

// bindModel 把模型记到会话中
func (a *app) bindModel(ctx context.Context, modelID string) error {
	if a.sessionID == "" {
		return nil
	}
	_, err := a.client.BindSessionState(ctx, a.sessionID, &modelID, nil)
	return err
}

// bindRun 把运行记到会话中
func (a *app) bindRun(ctx context.Context, runID string) error {
	if a.sessionID == "" {
		return nil
	}
	_, err := a.client.BindSessionState(ctx, a.sessionID, nil, &runID)
	return err
}

// resolveModel 显式参数优先，否则使用会话中的模型
func (a *app) resolveModel(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	sess, err := a.session(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil || sess.ModelID == "" {
		return "", fmt.Errorf("no model given: pass --model or use a --session with a model")
	}
	return sess.ModelID, nil
}

// resolveRun 显式参数优先，否则使用会话中的运行
func (a *app) resolveRun(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	sess, err := a.session(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil || sess.RunID == "" {
		return "", fmt.Errorf("no run given: pass a run id or use a --session with a started run")
	}
	return sess.RunID, nil
}
