/*
Package bstable implements the construction of immutable, sorted,
block-structured table files (SSTables) over arbitrary byte-string
keys, using the LevelDB table format.

Data Structure Documentation

Table

A table contains a series of data blocks followed by an optional
filter block, a metaindex block, an index block and a fixed-size
footer.

    Table layout:
    +---------+---------+---------+--------------+-----------------+-------------+--------+
    | block 1 |   ...   | block n | filter block | metaindex block | index block | footer |
    +---------+---------+---------+--------------+-----------------+-------------+--------+

    Footer (48 bytes):
    +---------------------------+-----------------------+---------+-----------------+
    | metaindex handle (varint) | index handle (varint) | padding | magic (8 bytes) |
    +---------------------------+-----------------------+---------+-----------------+

A block handle is the varint-encoded offset and length of a block
within the file. The index block maps a short separator key per data
block to that block's handle; the metaindex block maps the key
"filter.<policy name>" to the filter block's handle.

Block

Every block except the footer is framed by a 1-byte compression type
tag and a 4-byte masked CRC-32C checksum covering the block contents
and the tag.

    Block framing:
    +--------------------------+--------------+-------------------+
    | contents (raw or snappy) | type (1 byte)| checksum (4 bytes)|
    +--------------------------+--------------+-------------------+

Inside a block, keys are prefix-compressed: each entry stores only the
key suffix that differs from the previous key. Once every
BlockRestartInterval entries the full key is stored instead and its
offset is recorded as a restart point; the restart array at the end of
the block allows binary search.

    Block contents:
    +---------+-------+---------+--------------------+----------------------------+
    | entry 1 |  ...  | entry n | restarts (4 bytes each) | restart count (4 bytes) |
    +---------+-------+---------+--------------------+----------------------------+

    Entry:
    +-----------------+-------------------+------------------+------------+-------+
    | shared (varint) | unshared (varint) | val len (varint) | key suffix | value |
    +-----------------+-------------------+------------------+------------+-------+

Filter block

The filter block holds one filter per 2KiB window of file offsets,
each produced by the configured FilterPolicy from the keys of the data
blocks starting in that window. A window that received no keys stores
a zero-length filter, which matches nothing.

    Filter block contents:
    +----------+-------+----------+-------------------------+------------------------+----------------+
    | filter 1 |  ...  | filter n | offsets (4 bytes each)  | array start (4 bytes)  | base (1 byte)  |
    +----------+-------+----------+-------------------------+------------------------+----------------+
*/
package bstable
