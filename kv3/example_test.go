package kv3_test

import (
	"fmt"

	"github.com/mcncl/kv3typer/kv3"
)

type particle struct {
	Flags  float32
	Counts []int64
}

func (p *particle) DecodeKV3(m *kv3.MapAccess) error {
	return m.Decode(
		kv3.Field("m_nFlags", kv3.Float[float32](), &p.Flags),
		kv3.OptionalField("counts", kv3.Slice(kv3.Integer[int64]()), &p.Counts),
	)
}

func ExampleUnmarshal() {
	var p particle
	err := kv3.Unmarshal(`{
		m_nFlags = 4
		counts = [1, 2, 3,]
	}`, &p)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(p.Flags, p.Counts)
	// Output: 4 [1 2 3]
}

func ExampleParse() {
	rest, root, err := kv3.Parse(`{ name = "ember" size = #[0A 0B] } tail`)
	if err != nil {
		fmt.Println(err)
		return
	}
	for k, v := range root.All() {
		fmt.Println(k, v.Kind())
	}
	fmt.Printf("%q\n", rest)
	// Output:
	// name string
	// size hex array
	// "tail"
}

func ExampleUnmarshal_error() {
	var p particle
	err := kv3.Unmarshal(`{ counts = [1, "two"] m_nFlags = 1 }`, &p)
	fmt.Println(err)
	// Output: kv3: counts[1]: expected integer, got string
}

func ExampleDecodeString() {
	tags, err := kv3.DecodeString(`{ a = ["x"] b = [] }`, kv3.Map(kv3.Slice(kv3.Text())))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(len(tags["a"]), len(tags["b"]))
	// Output: 1 0
}
