// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/sqlfence/sqlfence/lib/util/cmd"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"github.com/sqlfence/sqlfence/pkg/metrics"
	"github.com/sqlfence/sqlfence/pkg/sctx"
	"github.com/sqlfence/sqlfence/pkg/server"
	"github.com/sqlfence/sqlfence/pkg/util/versioninfo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     os.Args[0],
		Short:   "start the query governance gate",
		Version: fmt.Sprintf("%s, commit %s", versioninfo.SQLFenceVersion, versioninfo.SQLFenceGitHash),
	}
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	sctx := &sctx.Context{}
	rootCmd.PersistentFlags().StringVar(&sctx.ConfigFile, "config", "", "gate config file path")

	metrics.MaxProcsGauge.Set(float64(runtime.GOMAXPROCS(0)))

	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		srv, err := server.NewServer(cmd.Context(), sctx)
		if err != nil {
			return errors.Wrapf(err, "fail to create server")
		}

		<-cmd.Context().Done()
		if e := srv.Close(); e != nil {
			err = e
		}

		return err
	}

	cmd.RunRootCommand(rootCmd)
}
