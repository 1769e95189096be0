package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/randotrack/internal/env"
	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/rule"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func miniValue(t *testing.T) cue.Value {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "logic", "mini.cue"))
	require.NoError(t, err)
	v := cuecontext.New().CompileBytes(data, cue.Filename("mini.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileLogic_Mini(t *testing.T) {
	db, err := CompileLogic(miniValue(t), "")
	require.NoError(t, err)

	assert.Equal(t, "Mini", db.Name)
	assert.Empty(t, db.Variant)
	assert.Len(t, db.Items, 10)

	sword, ok := db.Item("sword")
	require.True(t, ok)
	assert.Equal(t, "Fighter Sword", sword.Name)
	assert.True(t, sword.Default)

	require.Len(t, db.Rules, 2)
	assert.Equal(t, "canfight", db.Rules[0].ID)
	assert.Equal(t, "Can fight", db.Rules[0].Name)
	assert.Equal(t, "Can fight", db.Rules[0].Rule.Name())
	assert.Equal(t, "Holding a weapon that can damage bosses", db.Rules[0].Description)
	assert.Equal(t, []string{"hammer", "sword"}, db.Rules[0].Rule.Dependencies().Sorted())
	assert.Equal(t, "darkpath", db.Rules[1].ID)

	require.Len(t, db.Regions, 2)
	assert.Equal(t, "eastdm", db.Regions[0].ID)
	assert.Equal(t, []string{"darkpath", "moonpearl"}, db.Regions[1].Requires.Dependencies().Sorted())

	assert.Equal(t, []string{"boots", "sword"}, db.Defaults)
	assert.Equal(t, []string{"bombos", "ether", "quake"}, db.Slots["medallions"])
	require.Len(t, db.Prizes, 2)
	assert.Equal(t, logic.Prize{Name: "crystal", Facts: []string{"crystal1", "crystal2"}}, db.Prizes[0])
	assert.Equal(t, "pendant", db.Prizes[1].Name)
}

func TestCompileLogic_Locations(t *testing.T) {
	db, err := CompileLogic(miniValue(t), "")
	require.NoError(t, err)

	ids := make([]string, 0, len(db.Locations))
	for _, l := range db.Locations {
		ids = append(ids, l.LocationID())
	}
	// Merged locations are only reachable through their marker.
	assert.Equal(t, []string{"ether_tablet", "bumper_cave", "lumberjacks"}, ids)

	ml, ok := db.Location("ether_tablet")
	require.True(t, ok)
	tablet := ml.(*logic.Location)
	assert.Equal(t, 21.0, tablet.X)
	assert.Equal(t, 3.0, tablet.Y)
	assert.Equal(t, 1, tablet.Items)
	assert.Equal(t, []string{"book", "eastdm"}, tablet.Visible.Dependencies().Sorted())

	ml, ok = db.Location("lumberjacks")
	require.True(t, ok)
	merged := ml.(*logic.MergeLocation)
	require.Len(t, merged.Subs, 2)
	assert.Equal(t, "lumberjack_tree", merged.Subs[0].ID)
	assert.True(t, merged.Subs[0].Visible.IsAlwaysTrue())
	assert.True(t, merged.Subs[1].Visible.IsAlwaysFalse(), "visible defaults to false")

	cave, ok := db.Location("lumberjack_cave")
	require.True(t, ok)
	assert.Equal(t, "Lumberjack Cave", cave.LocationName())
}

func TestCompileLogic_Dungeons(t *testing.T) {
	db, err := CompileLogic(miniValue(t), "")
	require.NoError(t, err)
	require.Len(t, db.Dungeons, 3)

	hera, ok := db.Dungeon("hera")
	require.True(t, ok)
	assert.Equal(t, "Tower of Hera", hera.Name)
	require.NotNil(t, hera.Boss)
	assert.Equal(t, "moldorm", hera.Boss.Name)
	assert.True(t, hera.Boss.HasPrize, "prize defaults to true")
	assert.True(t, hera.Boss.Access.DependsOn("lamp"))
	require.Len(t, hera.Chests, 6)
	assert.Equal(t, "basement", hera.Chests[1].Name)
	assert.True(t, hera.Chests[1].Access.DependsOn("lamp"))
	assert.True(t, hera.Chests[0].Access.IsAlwaysTrue())
	assert.Equal(t, 1, hera.Keys)

	mire, ok := db.Dungeon("mire")
	require.True(t, ok)
	assert.Equal(t, "mire.medallion", mire.Medallion)
	assert.Equal(t, []string{"smallkey"}, mire.NotInPool)
	assert.True(t, mire.Boss.Access.IsAlwaysTrue(), "access defaults to true")

	castle, ok := db.Dungeon("castle")
	require.True(t, ok)
	assert.Nil(t, castle.Boss)
	assert.True(t, castle.Enter.IsAlwaysTrue())
}

func TestCompileLogic_Variant(t *testing.T) {
	db, err := CompileLogic(miniValue(t), "glitched")
	require.NoError(t, err)
	assert.Equal(t, "glitched", db.Variant)

	rules := db.NamedRules()
	require.Contains(t, rules, "canfight")
	assert.True(t, rules["canfight"].IsAlwaysTrue(), "variant rule replaces base rule")
	require.Contains(t, rules, "fakeflipper")
	assert.True(t, rules["fakeflipper"].DependsOn("boots"))
	assert.Contains(t, rules, "darkpath")
	assert.Equal(t, []string{"ether"}, db.Slots["medallions"])
}

func TestCompileLogic_UnknownVariant(t *testing.T) {
	_, err := CompileLogic(miniValue(t), "nope")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "logics", ce.Field)
	assert.Contains(t, ce.Message, `"nope"`)
}

func TestCompileLogic_BindsCleanly(t *testing.T) {
	db, err := CompileLogic(miniValue(t), "")
	require.NoError(t, err)

	e := env.New()
	for _, r := range db.Rules {
		require.NoError(t, e.Bind(r.ID, r.Rule))
	}
	for _, r := range db.Regions {
		require.NoError(t, r.Bind(e))
	}
	for _, l := range db.Locations {
		require.NoError(t, l.Bind(e))
	}
	for _, d := range db.Dungeons {
		require.NoError(t, d.Bind(e))
	}

	e.Set("glove", true)
	e.Set("book", true)
	assert.True(t, e.IsTrue("ether_tablet.visible"))
	assert.False(t, e.IsTrue("ether_tablet"))
	e.Set("sword", true)
	assert.True(t, e.IsTrue("ether_tablet"))
	assert.True(t, e.IsTrue("hera.enter"))
}

func TestCompileLogic_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "number rule",
			src:   `rules: bad: 3`,
			field: "rules.bad",
			msg:   "unsupported rule kind",
		},
		{
			name:  "unknown rule key",
			src:   `rules: bad: {either: ["a"]}`,
			field: "rules.bad",
			msg:   "either",
		},
		{
			name:  "bad requires",
			src:   `regions: r: {requires: 1.5}`,
			field: "regions.r.requires",
			msg:   "unsupported rule kind",
		},
		{
			name:  "unknown merge",
			src:   `locations: m: {name: "M", merge: ["nope"]}`,
			field: "merge",
			msg:   `unknown location "nope"`,
		},
		{
			name:  "short point",
			src:   `locations: x: {location: [1]}`,
			field: "locations.x.location",
			msg:   "[x, y]",
		},
		{
			name:  "boss without name",
			src:   `dungeons: d: {boss: {defeat: "sword"}}`,
			field: "dungeons.d.boss.name",
			msg:   "required",
		},
		{
			name:  "chest without name",
			src:   `dungeons: d: {items: [{access: "lamp"}]}`,
			field: "dungeons.d.items[0]",
			msg:   "chest",
		},
		{
			name:  "name not a string",
			src:   `items: lamp: {name: 3}`,
			field: "items.lamp.name",
		},
		{
			name:  "keys not an int",
			src:   `dungeons: d: {keys: "two"}`,
			field: "dungeons.d.keys",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileLogic(compileString(t, tt.src), "")
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			if tt.msg != "" {
				assert.Contains(t, ce.Message, tt.msg)
			}
		})
	}
}

func TestCompileLogic_BareRuleForms(t *testing.T) {
	v := compileString(t, `
		rules: {
			always: true
			one: "lamp"
			both: ["lamp", "sword"]
			nested: {any: ["a", ["b", "c"]], all: "d"}
		}
	`)
	db, err := CompileLogic(v, "")
	require.NoError(t, err)

	rules := db.NamedRules()
	assert.True(t, rules["always"].IsAlwaysTrue())
	assert.IsType(t, &rule.Lookup{}, rules["one"])
	assert.Equal(t, "all(lamp, sword)", rules["both"].String())
	assert.Equal(t, []string{"a", "b", "c", "d"}, rules["nested"].Dependencies().Sorted())
}

func TestCompileLogic_NullsInLists(t *testing.T) {
	v := compileString(t, `
		defaults: ["lamp", null]
		prizes: crystal: [null, "crystal1"]
	`)
	db, err := CompileLogic(v, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"lamp"}, db.Defaults)
	assert.Equal(t, []string{"crystal1"}, db.Prizes[0].Facts)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "rules.x", Message: "bad"}
	assert.Equal(t, "rules.x: bad", err.Error())

	v := compileString(t, `rules: x: 3`)
	_, cerr := CompileLogic(v, "")
	require.Error(t, cerr)
	assert.Contains(t, cerr.Error(), "rules.x: unsupported rule kind")
}
