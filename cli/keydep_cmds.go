/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"fmt"
	"log"
	"strings"

	"github.com/miekg/dns"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/johanix/odsdb/enforcer"
)

var KeyDepCmd = &cobra.Command{
	Use:   "keydep",
	Short: "Manage key dependencies",
}

var keydepListCmd = &cobra.Command{
	Use:   "list [--zone <zone>]",
	Short: "List key dependencies, optionally only those of one zone",
	Run: func(cmd *cobra.Command, args []string) {
		conn := connect(cmd.Context())
		defer disconnect(conn)

		kdl, err := enforcer.NewKeyDependencyList(conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if zonename != "" {
			err = kdl.GetByZoneName(cmd.Context(), zonename)
		} else {
			err = kdl.GetAll(cmd.Context())
		}
		if err != nil {
			log.Fatalf("Error listing key dependencies: %v", err)
		}
		kds, err := kdl.KeyDependencies()
		if err != nil {
			log.Fatalf("Error listing key dependencies: %v", err)
		}

		if showYaml {
			printYaml(kds)
			return
		}
		if len(kds) == 0 {
			fmt.Printf("No key dependencies.\n")
			return
		}
		var out = []string{"Id|Rev|Zone id|From key|To key|Type|RR type"}
		for _, kd := range kds {
			out = append(out, fmt.Sprintf("%d|%d|%d|%d|%d|%s|%s",
				kd.ID, kd.Rev, kd.ZoneID, kd.FromKeyDataID, kd.ToKeyDataID,
				kd.TypeText(), dns.TypeToString[kd.RRType()]))
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var keydepAddCmd = &cobra.Command{
	Use:   "add --zone <zone> --from <keyid> --to <keyid> --type <type>",
	Short: "Add a key dependency",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("zonename", "keys", "keydeptype")

		conn := connect(cmd.Context())
		defer disconnect(conn)

		z := getZone(cmd, conn)
		kd, err := enforcer.NewKeyDependency(conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := kd.SetTypeText(strings.ToUpper(keydepType)); err != nil {
			log.Fatalf("Error: %v (known types: DS, RRSIG, DNSKEY, RRSIGDNSKEY)", err)
		}
		kd.ZoneID = z.ID
		kd.FromKeyDataID = fromKeyID
		kd.ToKeyDataID = toKeyID

		if err := kd.Create(cmd.Context()); err != nil {
			log.Fatalf("Error adding key dependency: %v", err)
		}
		fmt.Printf("Key dependency %d added to zone %s (%s %d -> %d)\n",
			kd.ID, z.Name, kd.TypeText(), kd.FromKeyDataID, kd.ToKeyDataID)
	},
}

var keydepDeleteCmd = &cobra.Command{
	Use:   "delete --id <id>",
	Short: "Delete a key dependency",
	Run: func(cmd *cobra.Command, args []string) {
		PrepArgs("keydepid")

		conn := connect(cmd.Context())
		defer disconnect(conn)

		kd, err := enforcer.NewKeyDependency(conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := kd.GetByID(cmd.Context(), keydepID); err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := kd.Delete(cmd.Context()); err != nil {
			log.Fatalf("Error deleting key dependency %d: %v", kd.ID, err)
		}
		fmt.Printf("Key dependency %d deleted\n", kd.ID)
	},
}

func init() {
	KeyDepCmd.AddCommand(keydepListCmd, keydepAddCmd, keydepDeleteCmd)

	addZoneFlag(KeyDepCmd.PersistentFlags())
	addYamlFlag(keydepListCmd.Flags())

	keydepAddCmd.Flags().Int64VarP(&fromKeyID, "from", "", 0, "id of the key that depends on the other")
	keydepAddCmd.Flags().Int64VarP(&toKeyID, "to", "", 0, "id of the key depended upon")
	keydepAddCmd.Flags().StringVarP(&keydepType, "type", "t", "", "dependency type (DS, RRSIG, DNSKEY, RRSIGDNSKEY)")
	keydepDeleteCmd.Flags().Int64VarP(&keydepID, "id", "", 0, "key dependency id")
}
