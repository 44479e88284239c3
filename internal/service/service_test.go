package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/store"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

func readTable(t *testing.T, s *Service, lines ...string) *table.Table {
	t.Helper()
	tbl, err := s.ReadTable(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	return tbl
}

func identityMapping(fields ...string) core.Mapping {
	m := make(core.Mapping, len(fields))
	for _, f := range fields {
		m[f] = f
	}
	return m
}

func genome() core.GenomeInfo {
	return core.GenomeInfo{Name: "3D7", TaxonID: "5833", URL: "https://plasmodb.org/3D7.fasta", Version: "2020-09-01"}
}

func panelInput(id string) core.PanelInput {
	return core.PanelInput{
		PanelID: id,
		Mapping: core.Mapping{"target_id": "amplicon", "forward_primers": "fwd", "reverse_primers": "rev"},
		Genome:  genome(),
	}
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewMemory(), Config{})

	panelTable := readTable(t, svc, "amplicon\tfwd\trev", "L1\tACGT\tTTGA")
	panel, err := svc.BuildPanel(ctx, panelTable, panelInput("P1"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, panel.PanelIDs())

	ids, err := svc.ListPanels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids)

	loaded, err := svc.LoadPanel(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, panel, loaded)

	mhTable := readTable(t, svc,
		"sample\ttarget\thap_seq\tread_ct",
		"E1\tL1\tACGT\t10",
		"E1\tL1\tACGA\t5",
	)
	res, err := svc.MatchColumns(ctx, core.SectionMicrohaplotype, mhTable.Columns, MatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, core.Mapping{"sampleID": "sample", "locus": "target", "asv": "hap_seq", "reads": "read_ct"}, res.Mapping)

	mh, err := svc.BuildMicrohaplotypes(ctx, mhTable, core.MicrohaplotypeInput{BioinformaticsID: "run1", Mapping: res.Mapping})
	require.NoError(t, err)

	specimenFields := core.MustGet(core.SectionSpecimen).Required()
	specimens, err := svc.BuildSpecimens(ctx,
		readTable(t, svc, strings.Join(specimenFields, "\t"), "SP1\t5833\t2023-01-05\tKenya"),
		core.RecordInput{Mapping: identityMapping(specimenFields...)},
	)
	require.NoError(t, err)

	experimentFields := core.MustGet(core.SectionExperiment).Required()
	experiments, err := svc.BuildExperiments(ctx,
		readTable(t, svc, strings.Join(experimentFields, "\t"), "E1\tSP1\tP1"),
		core.RecordInput{Mapping: identityMapping(experimentFields...)},
	)
	require.NoError(t, err)

	doc, err := svc.Assemble(ctx, core.Sections{
		Panel:           loaded,
		Microhaplotypes: mh,
		Specimens:       specimens,
		Experiments:     experiments,
	})
	require.NoError(t, err)
	assert.NoError(t, core.CrossCheck(doc))
	assert.Equal(t, "5833", doc.SpecimenInfo["SP1"]["samp_taxon_id"])

	require.NoError(t, svc.DeletePanel(ctx, "P1"))
	_, err = svc.LoadPanel(ctx, "P1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestService_BuildPanelWithoutSave(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewMemory(), Config{})

	_, err := svc.BuildPanel(ctx, readTable(t, svc, "amplicon\tfwd\trev", "L1\tACGT\tTTGA"), panelInput("P1"), false)
	require.NoError(t, err)

	ids, err := svc.ListPanels(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_RejectsDuplicateMapping(t *testing.T) {
	svc := New(nil, Config{})
	in := panelInput("P1")
	in.Mapping["reverse_primers"] = "fwd"

	_, err := svc.BuildPanel(context.Background(), readTable(t, svc, "amplicon\tfwd\trev", "L1\tA\tC"), in, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "same source column")
}

func TestService_MatchColumns(t *testing.T) {
	svc := New(nil, Config{})

	_, err := svc.MatchColumns(context.Background(), "assay", []string{"a"}, MatchRequest{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.MatchColumns(context.Background(), core.SectionPanel, []string{"a"}, MatchRequest{Method: "semantic"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Equal(t, "CFG002", core.MapError(err).Code)

	res, err := svc.MatchColumns(context.Background(), core.SectionPanel, []string{"target_id", "chrom"}, MatchRequest{Assignment: "legacy"})
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Assignment)
	assert.Equal(t, "target_id", res.Mapping["target_id"])
	assert.Equal(t, "chrom", res.Mapping["chrom"])
}

func TestService_AutoMatchedPanelBuilds(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewMemory(), Config{})

	tbl := readTable(t, svc,
		"target_id\tfwd_primer\trev_primer\tnotes\tpool",
		"L1\tACGT\tTTGA\tfirst\tA",
		"L2\tGGCC\tAATT\tsecond\tB",
	)
	res, err := svc.MatchColumns(ctx, core.SectionPanel, tbl.Columns, MatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, core.Mapping{"target_id": "target_id", "forward_primers": "fwd_primer", "reverse_primers": "rev_primer"}, res.Mapping)
	assert.Equal(t, []string{"notes", "pool"}, res.Unused)

	in := panelInput("P1")
	in.Mapping = res.Mapping
	in.Additional = res.Unused
	frag, err := svc.BuildPanel(ctx, tbl, in, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"notes": "second", "pool": "B"}, frag.PanelInfo["P1"].Targets["L2"].Additional)
}

func TestService_BuildPanelTrimsID(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewMemory(), Config{})

	frag, err := svc.BuildPanel(ctx, readTable(t, svc, "amplicon\tfwd\trev", "L1\tACGT\tTTGA"), panelInput(" P1 "), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, frag.PanelIDs())

	ids, err := svc.ListPanels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids)

	loaded, err := svc.LoadPanel(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, frag, loaded)
}

func TestService_NoStore(t *testing.T) {
	ctx := context.Background()
	svc := New(nil, Config{})

	ids, err := svc.ListPanels(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = svc.LoadPanel(ctx, "P1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.BuildPanel(ctx, readTable(t, svc, "amplicon\tfwd\trev", "L1\tA\tC"), panelInput("P1"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no panel store")
}

func TestService_LimiterRejects(t *testing.T) {
	svc := New(nil, Config{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	fields := core.MustGet(core.SectionSpecimen).Required()
	_, err := svc.BuildSpecimens(context.Background(),
		readTable(t, svc, strings.Join(fields, "\t"), "SP1\t5833\t2023\tKenya"),
		core.RecordInput{Mapping: identityMapping(fields...)},
	)
	assert.ErrorIs(t, err, ErrTooManyConversions)
	assert.Equal(t, "UPL002", core.MapError(err).Code)
}

func TestService_ReadTableLimit(t *testing.T) {
	svc := New(nil, Config{MaxTableBytes: 8})
	_, err := svc.ReadTable(strings.NewReader("a\tb\n1\t2\n3\t4\n"))
	assert.ErrorIs(t, err, table.ErrTooLarge)
}

// countingStore records the peak number of concurrent saves per panel.
type countingStore struct {
	*store.Memory
	mu      sync.Mutex
	active  map[string]int
	maxSeen int
}

func (c *countingStore) Save(ctx context.Context, p *core.Panel) error {
	c.mu.Lock()
	c.active[p.PanelID]++
	if c.active[p.PanelID] > c.maxSeen {
		c.maxSeen = c.active[p.PanelID]
	}
	c.mu.Unlock()

	time.Sleep(2 * time.Millisecond)
	err := c.Memory.Save(ctx, p)

	c.mu.Lock()
	c.active[p.PanelID]--
	c.mu.Unlock()
	return err
}

func TestService_SavesSerialisedPerPanel(t *testing.T) {
	cs := &countingStore{Memory: store.NewMemory(), active: make(map[string]int)}
	svc := New(cs, Config{MaxConcurrent: 20})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &core.Panel{PanelID: "P1", TargetGenome: genome(), Targets: map[string]core.Target{}}
			assert.NoError(t, svc.SavePanel(context.Background(), p))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cs.maxSeen)
	assert.Equal(t, 0, svc.panelMu.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
	assert.Equal(t, 0, k.size())
}
