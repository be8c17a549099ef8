// Command ratemydpe はRate My DPEのAPIサーバー・ワーカー・マイグレーションを起動する。
//
// 使い方:
//
//	ratemydpe [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/ratemydpe/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
