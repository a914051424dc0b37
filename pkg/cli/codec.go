package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/wire"
)

var messageKinds = map[string]*wire.VariantType{
	"request": msgs.Requests,
	"reply":   msgs.Replies,
	"event":   msgs.Events,
}

func variantTypeOf(kind string) (*wire.VariantType, error) {
	if vt, ok := messageKinds[strings.ToLower(kind)]; ok {
		return vt, nil
	}
	return nil, fmt.Errorf("unknown message kind %q, expect request, reply or event", kind)
}

func newEncodeCmd() *cobra.Command {
	var seq uint8
	cmd := &cobra.Command{
		Use:   "encode KIND NAME [JSON]",
		Short: "Encode a message into hex",
		Example: `  avrctl encode request SetPin '{"Pin":13,"High":true}'
  avrctl encode event Log '{"Level":"info","Text":"hello"}' --seq 1`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := variantTypeOf(args[0])
			if err != nil {
				return err
			}
			msg, err := msgs.ParseByName(vt, args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			data, err := msgs.Encode(vt, msg)
			if err != nil {
				return err
			}
			if seq != 0 {
				code := msgs.CodeMessage
				if vt == msgs.Events {
					code = msgs.CodeEventMessage
				}
				pkt := &comm.Packet{Seq: comm.PacketSeq(seq), Code: code, Data: data}
				if !pkt.Seq.IsValid() {
					return fmt.Errorf("invalid packet seq %d", seq)
				}
				if data, err = pkt.Bytes(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		},
	}
	cmd.Flags().Uint8Var(&seq, "seq", 0, "Wrap in a link packet with this sequence")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var packet bool
	cmd := &cobra.Command{
		Use:   "decode KIND HEX",
		Short: "Decode a hex message into JSON",
		Example: `  avrctl decode reply 0101020300
  avrctl decode event --packet "05 81 02 02 03 01"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vt, err := variantTypeOf(args[0])
			if err != nil {
				return err
			}
			data, err := parseHex(strings.Join(args[1:], ""))
			if err != nil {
				return err
			}
			if packet {
				if data, err = packetData(vt, data); err != nil {
					return err
				}
			}
			msg, err := msgs.Decode(vt, data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), msgs.Describe(msg))
		},
	}
	cmd.Flags().BoolVar(&packet, "packet", false, "Input is a link packet")
	return cmd
}

func parseHex(str string) ([]byte, error) {
	str = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(str)
	str = strings.TrimPrefix(strings.ToLower(str), "0x")
	return hex.DecodeString(str)
}

// packetData unwraps the message from a link packet. Replies carry the
// request seq in front of the message.
func packetData(vt *wire.VariantType, b []byte) ([]byte, error) {
	pkt, err := comm.ParsePacket(b)
	if err != nil {
		return nil, err
	}
	if vt != msgs.Replies {
		return pkt.Data, nil
	}
	if len(pkt.Data) == 0 {
		return nil, comm.ErrNoReply
	}
	if pkt.Code&comm.CodeError != 0 {
		err := &comm.CommandError{Code: pkt.Code & comm.CodeMask}
		if len(pkt.Data) > 1 {
			err.Reason = pkt.Data[1]
		}
		return nil, err
	}
	return pkt.Data[1:], nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
