package dataset

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/heatlens/heatlens/configs"
	"github.com/heatlens/heatlens/hub"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// Dataset files are parquet; the description blob and the dataset-native
// label names ride in the footer key/value metadata.
const (
	instanceFileName = "test.parquet"
	metaDescription  = "description"
	metaLabelNames   = "label_names"
)

// instanceRow is the parquet row layout of an Instance.
type instanceRow struct {
	Idx          int64     `parquet:"idx"`
	InputIDs     []int64   `parquet:"input_ids"`
	Attributions []float64 `parquet:"attributions"`
	Label        int64     `parquet:"label"`
	Predictions  []float64 `parquet:"predictions"`
}

func (row *instanceRow) toInstance() Instance {
	ids := make([]int, len(row.InputIDs))
	for i, id := range row.InputIDs {
		ids[i] = int(id)
	}
	return Instance{
		Idx:          int(row.Idx),
		InputIDs:     ids,
		Attributions: row.Attributions,
		Label:        int(row.Label),
		Predictions:  row.Predictions,
	}
}

func fromInstance(in *Instance) instanceRow {
	ids := make([]int64, len(in.InputIDs))
	for i, id := range in.InputIDs {
		ids[i] = int64(id)
	}
	return instanceRow{
		Idx:          int64(in.Idx),
		InputIDs:     ids,
		Attributions: in.Attributions,
		Label:        int64(in.Label),
		Predictions:  in.Predictions,
	}
}

// loadFromHub downloads the configuration's instance file and reads it.
func loadFromHub(cfg configs.Config) (*Pack, error) {
	repo := hub.NewDataset(configs.DatasetHubID(cfg))
	localPath, err := repo.DownloadFile(instanceFileName)
	if err != nil {
		// External fetch failures are propagated as-is.
		return nil, err
	}
	return LoadFile(cfg, localPath)
}

// LoadFile reads a local parquet instance file into a Pack. The file is
// memory-mapped and handed to the parquet reader.
func LoadFile(cfg configs.Config, path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset file %q", path)
	}
	defer func() { _ = f.Close() }()

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "memory-mapping dataset file %q", path)
	}
	defer func() { _ = mm.Unmap() }()

	reader := bytes.NewReader(mm)
	size := int64(len(mm))

	pf, err := parquet.OpenFile(reader, size)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing parquet file %q", path)
	}
	description, ok := pf.Lookup(metaDescription)
	if !ok {
		return nil, errors.Errorf("dataset file %q carries no %q footer metadata", path, metaDescription)
	}
	var nativeLabels []string
	if raw, ok := pf.Lookup(metaLabelNames); ok {
		if err := json.Unmarshal([]byte(raw), &nativeLabels); err != nil {
			return nil, errors.Wrapf(err, "parsing %q footer metadata of %q", metaLabelNames, path)
		}
	}

	rows, err := parquet.Read[instanceRow](reader, size)
	if err != nil {
		return nil, errors.Wrapf(err, "reading instances from %q", path)
	}
	instances := make([]Instance, len(rows))
	for i := range rows {
		instances[i] = rows[i].toInstance()
	}

	return NewPack(cfg, description, nativeLabels, instances)
}

// WriteFile writes instances to a parquet file in the layout LoadFile
// expects. Used to produce dataset files and test fixtures.
func WriteFile(path, description string, nativeLabels []string, instances []Instance) error {
	labelsJSON, err := json.Marshal(nativeLabels)
	if err != nil {
		return errors.Wrapf(err, "encoding label names")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating dataset file %q", path)
	}
	defer func() { _ = f.Close() }()

	w := parquet.NewGenericWriter[instanceRow](f,
		parquet.KeyValueMetadata(metaDescription, description),
		parquet.KeyValueMetadata(metaLabelNames, string(labelsJSON)),
	)
	rows := make([]instanceRow, len(instances))
	for i := range instances {
		rows[i] = fromInstance(&instances[i])
	}
	if _, err := w.Write(rows); err != nil {
		return errors.Wrapf(err, "writing instances to %q", path)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "finalizing dataset file %q", path)
	}
	return nil
}
