package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/tutor"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the learner profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the learner profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		printProfile(cmd, e.State.Snapshot().Profile)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change profile fields",
	Example: "  aitutor profile set --name Ada --math symbolic --coding intermediate --pace fast",
	RunE: func(cmd *cobra.Command, args []string) error {
		var u tutor.ProfileUpdate
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			u.Name = &name
		}
		if cmd.Flags().Changed("math") {
			s, _ := cmd.Flags().GetString("math")
			v, err := tutor.ParseMathComfort(s)
			if err != nil {
				return err
			}
			u.MathComfort = &v
		}
		if cmd.Flags().Changed("coding") {
			s, _ := cmd.Flags().GetString("coding")
			v, err := tutor.ParseCodingLevel(s)
			if err != nil {
				return err
			}
			u.CodingLevel = &v
		}
		if cmd.Flags().Changed("pace") {
			s, _ := cmd.Flags().GetString("pace")
			v, err := tutor.ParsePace(s)
			if err != nil {
				return err
			}
			u.Pace = &v
		}
		if u.IsEmpty() {
			return fmt.Errorf("nothing to change; pass at least one of --name, --math, --coding, --pace")
		}

		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.State.UpdateProfile(cmd.Context(), u); err != nil {
			return err
		}
		printProfile(cmd, e.State.Snapshot().Profile)
		return nil
	},
}

func printProfile(cmd *cobra.Command, p tutor.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:          %s\n", p.Name)
	fmt.Fprintf(out, "Math comfort:  %s\n", p.MathComfort)
	fmt.Fprintf(out, "Coding level:  %s\n", p.CodingLevel)
	fmt.Fprintf(out, "Pace:          %s\n", p.Pace)
}

func init() {
	profileSetCmd.Flags().String("name", "", "Learner name")
	profileSetCmd.Flags().String("math", "", "Math comfort: visual, balanced or symbolic")
	profileSetCmd.Flags().String("coding", "", "Coding level: beginner, intermediate or advanced")
	profileSetCmd.Flags().String("pace", "", "Pace: slow, normal or fast")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}
