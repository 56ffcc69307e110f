package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "renpyfmt",
	Short: "Ren'Py script formatter",
	Long:  "renpyfmt parses Ren'Py script files into an AST and prints them back in a canonical form.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().IntP("parallel", "p", 8, "Maximum files formatted in parallel")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("parallel", rootCmd.PersistentFlags().Lookup("parallel"))
}

func initConfig() {
	viper.SetEnvPrefix("RENPYFMT")
	viper.AutomaticEnv()
}
