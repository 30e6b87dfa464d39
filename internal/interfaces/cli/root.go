// Package cli 提供 scriptctl 命令行
package cli

import (
	"github.com/spf13/cobra"

	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
)

// App 命令行依赖的服务
type App struct {
	Store  *projectstore.Store
	Novels *novel.Service
}

// NewRootCmd 创建顶层 scriptctl 命令并注册全部子命令
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptctl",
		Short:         "Manage screenplay projects from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newProjectCmd(app),
		newNovelCmd(app),
		newPlanCmd(app),
		newScriptCmd(app),
	)

	return root
}

// projectFlag 绑定 --project，空值表示激活项目
func projectFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "project", "p", "", "project id (defaults to the active project)")
}

func (a *App) resolve(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	p, err := a.Store.Active()
	if err != nil {
		return "", err
	}
	return p.ID, nil
}
