/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
	"gopkg.in/yaml.v3"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/enforcer"
)

var signconfPath, inputType, inputURI, outputType, outputURI string
var needsWriting bool

var ZoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Manage zones in the enforcer database",
}

type zonesByName []*enforcer.Zone

func (zs zonesByName) Len() int           { return len(zs) }
func (zs zonesByName) Swap(i, j int)      { zs[i], zs[j] = zs[j], zs[i] }
func (zs zonesByName) Less(i, j int) bool { return zs[i].Name < zs[j].Name }

func quickSort(sortable sort.Interface) {
	sorts.Quicksort(sortable)
}

var zoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all zones",
	Run: func(cmd *cobra.Command, args []string) {
		conn := connect(cmd.Context())
		defer disconnect(conn)

		zl, err := enforcer.NewZoneList(conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := zl.GetAll(cmd.Context()); err != nil {
			log.Fatalf("Error listing zones: %v", err)
		}
		zones, err := zl.Zones()
		if err != nil {
			log.Fatalf("Error listing zones: %v", err)
		}
		quickSort(zonesByName(zones))

		if showYaml {
			printYaml(zones)
			return
		}
		if len(zones) == 0 {
			fmt.Printf("No zones.\n")
			return
		}
		var out = []string{"Id|Rev|Zone|Policy|Signconf|Next change"}
		for _, z := range zones {
			out = append(out, fmt.Sprintf("%d|%d|%s|%s|%s|%d",
				z.ID, z.Rev, z.Name, z.Policy, z.SignconfPath, z.NextChange))
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var zoneAddCmd = &cobra.Command{
	Use:   "add --zone <zone> --policy <policy>",
	Short: "Add a zone",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("zonename", "policy")

		conn := connect(cmd.Context())
		defer disconnect(conn)

		z, err := enforcer.NewZone(conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		z.Name = zonename
		z.Policy = policy
		z.SignconfPath = signconfPath
		z.NextChange = -1
		if needsWriting {
			z.SignconfNeedsWriting = 1
		}
		z.InputAdapterType, z.InputAdapterURI = inputType, inputURI
		z.OutputAdapterType, z.OutputAdapterURI = outputType, outputURI

		if err := z.Create(cmd.Context()); err != nil {
			log.Fatalf("Error adding zone %s: %v", zonename, err)
		}
		fmt.Printf("Zone %s added with id %d\n", z.Name, z.ID)
	},
}

var zoneShowCmd = &cobra.Command{
	Use:   "show --zone <zone>",
	Short: "Show all attributes of a zone",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("zonename")

		conn := connect(cmd.Context())
		defer disconnect(conn)

		z := getZone(cmd, conn)
		if showYaml {
			printYaml(z)
			return
		}
		n, err := enforcer.CountKeyDependenciesByZoneID(cmd.Context(), conn, z.ID)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		out := []string{
			fmt.Sprintf("Zone|%s", z.Name),
			fmt.Sprintf("Id / revision|%d / %d", z.ID, z.Rev),
			fmt.Sprintf("Policy|%s", z.Policy),
			fmt.Sprintf("Signconf|%s (needs writing: %d)", z.SignconfPath, z.SignconfNeedsWriting),
			fmt.Sprintf("Next change|%d", z.NextChange),
			fmt.Sprintf("TTL end DS/DK/RS|%d/%d/%d", z.TTLEndDs, z.TTLEndDk, z.TTLEndRs),
			fmt.Sprintf("Roll KSK/ZSK/CSK now|%d/%d/%d", z.RollKskNow, z.RollZskNow, z.RollCskNow),
			fmt.Sprintf("Input adapter|%s %s", z.InputAdapterType, z.InputAdapterURI),
			fmt.Sprintf("Output adapter|%s %s", z.OutputAdapterType, z.OutputAdapterURI),
			fmt.Sprintf("Key dependencies|%d", n),
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var zoneUpdateCmd = &cobra.Command{
	Use:   "update --zone <zone>",
	Short: "Change the policy or signconf state of a zone",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("zonename")

		conn := connect(cmd.Context())
		defer disconnect(conn)

		z := getZone(cmd, conn)
		if cmd.Flags().Changed("policy") {
			z.Policy = policy
		}
		if cmd.Flags().Changed("signconf") {
			z.SignconfPath = signconfPath
		}
		if cmd.Flags().Changed("needs-writing") {
			z.SignconfNeedsWriting = 0
			if needsWriting {
				z.SignconfNeedsWriting = 1
			}
		}
		err := z.Update(cmd.Context())
		if errors.Is(err, db.ErrStaleRevision) {
			log.Fatalf("Error: zone %s was changed by someone else, try again", z.Name)
		}
		if err != nil {
			log.Fatalf("Error updating zone %s: %v", z.Name, err)
		}
		fmt.Printf("Zone %s updated (revision %d)\n", z.Name, z.Rev)
	},
}

var zoneDeleteCmd = &cobra.Command{
	Use:   "delete --zone <zone>",
	Short: "Delete a zone and its key dependencies",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("zonename")
		ctx := cmd.Context()

		conn := connect(ctx)
		defer disconnect(conn)

		z := getZone(cmd, conn)

		if err := conn.TransactionBegin(ctx); err != nil {
			log.Fatalf("Error: %v", err)
		}
		err := deleteZone(cmd, conn, z)
		if err != nil {
			conn.TransactionRollback()
			log.Fatalf("Error deleting zone %s: %v", z.Name, err)
		}
		if err := conn.TransactionCommit(); err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("Zone %s deleted\n", z.Name)
	},
}

var zoneCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the zones",
	Run: func(cmd *cobra.Command, args []string) {
		conn := connect(cmd.Context())
		defer disconnect(conn)

		n, err := enforcer.CountZones(cmd.Context(), conn, nil)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("%d\n", n)
	},
}

func getZone(cmd *cobra.Command, conn *db.Connection) *enforcer.Zone {
	z, err := enforcer.NewZone(conn)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if err := z.GetByName(cmd.Context(), zonename); err != nil {
		if errors.Is(err, enforcer.ErrNotFound) {
			log.Fatalf("Error: zone %s not found", zonename)
		}
		log.Fatalf("Error: %v", err)
	}
	return z
}

func deleteZone(cmd *cobra.Command, conn *db.Connection, z *enforcer.Zone) error {
	ctx := cmd.Context()
	kdl, err := enforcer.KeyDependencyListByZoneID(ctx, conn, z.ID)
	if err != nil {
		return err
	}
	kds, err := kdl.KeyDependencies()
	if err != nil {
		return err
	}
	for _, kd := range kds {
		if err := kd.Delete(ctx); err != nil {
			return err
		}
	}
	return z.Delete(ctx)
}

func printYaml(data interface{}) {
	out, err := yaml.Marshal(data)
	if err != nil {
		log.Fatalf("Error marshalling YAML: %v", err)
	}
	fmt.Printf("%s", out)
}

func init() {
	ZoneCmd.AddCommand(zoneListCmd, zoneAddCmd, zoneShowCmd, zoneUpdateCmd, zoneDeleteCmd, zoneCountCmd)

	addZoneFlag(ZoneCmd.PersistentFlags())
	addYamlFlag(zoneListCmd.Flags())
	addYamlFlag(zoneShowCmd.Flags())

	for _, c := range []*cobra.Command{zoneAddCmd, zoneUpdateCmd} {
		c.Flags().StringVarP(&policy, "policy", "p", "", "KASP policy of the zone")
		c.Flags().StringVarP(&signconfPath, "signconf", "", "", "path of the signer configuration")
		c.Flags().BoolVarP(&needsWriting, "needs-writing", "", false, "signer configuration needs writing")
	}
	zoneAddCmd.Flags().StringVarP(&inputType, "input-type", "", "File", "input adapter type")
	zoneAddCmd.Flags().StringVarP(&inputURI, "input", "", "", "input adapter URI")
	zoneAddCmd.Flags().StringVarP(&outputType, "output-type", "", "File", "output adapter type")
	zoneAddCmd.Flags().StringVarP(&outputURI, "output", "", "", "output adapter URI")
}
